package config

import (
	"net"
	neturl "net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// DSNValue returns the driver-specific connection string. A configured URL
// wins over the discrete host/port/user fields.
func (c DatabaseRuntimeConfig) DSNValue() string {
	switch c.Driver {
	case DriverMySQL:
		return c.mysqlDSN()
	case DriverSQLite:
		return c.sqliteDSN()
	default:
		return c.postgresDSN()
	}
}

func (c DatabaseRuntimeConfig) postgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = neturl.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = neturl.User(c.User)
	}
	query := neturl.Values{}
	for k, v := range c.Params {
		query.Set(k, v)
	}
	if query.Get("sslmode") == "" && c.SSLMode != "" {
		query.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func (c DatabaseRuntimeConfig) mysqlDSN() string {
	mc := mysql.NewConfig()
	if c.URL != "" {
		if !strings.HasPrefix(strings.ToLower(c.URL), "mysql://") {
			// Already in go-sql-driver form.
			return c.URL
		}
		u, err := neturl.Parse(c.URL)
		if err != nil {
			return c.URL
		}
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
		mc.Net = "tcp"
		host := u.Host
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), strconv.Itoa(defaultMySQLPort))
		}
		mc.Addr = host
		mc.DBName = strings.TrimPrefix(u.Path, "/")
		mc.Params = map[string]string{}
		for k, vs := range u.Query() {
			if len(vs) > 0 {
				mc.Params[k] = vs[0]
			}
		}
	} else {
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Name
		mc.Params = copyStringMap(c.Params)
		if mc.Params == nil {
			mc.Params = map[string]string{}
		}
	}
	if _, ok := mc.Params["charset"]; !ok {
		charset := c.Charset
		if charset == "" {
			charset = defaultMySQLCharset
		}
		mc.Params["charset"] = charset
	}
	mc.ParseTime = true
	return mc.FormatDSN()
}

func (c DatabaseRuntimeConfig) sqliteDSN() string {
	path := c.URL
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = strings.TrimPrefix(path, "sqlite://")
	case path == "":
		path = c.Name
		if filepath.Ext(path) == "" {
			path += ".db"
		}
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + sqlitePragmas
}

// Redacted returns the DSN with any password masked, for logging.
func (c DatabaseRuntimeConfig) Redacted() string {
	if c.Driver == DriverSQLite {
		return c.DSNValue()
	}
	dsn := c.DSNValue()
	if c.Driver == DriverMySQL {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "<unparseable dsn>"
		}
		if mc.Passwd != "" {
			mc.Passwd = "xxxxx"
		}
		return mc.FormatDSN()
	}
	u, err := neturl.Parse(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	return u.Redacted()
}
