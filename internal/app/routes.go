package app

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/edgeflowers/newsletter/internal/middleware"
	"github.com/edgeflowers/newsletter/internal/modules/health"
	"github.com/edgeflowers/newsletter/internal/modules/subscriber"
	"github.com/edgeflowers/newsletter/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// adminPages are tried in order when "/" is requested from the static dir.
var adminPages = []string{"admin.html", "index.html"}

func (a *App) registerRoutes() {
	r := a.router

	staticDir := a.staticDir()
	r.NoRoute(func(c *gin.Context) {
		if staticDir != "" && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			if file := resolveStatic(staticDir, c.Request.URL.Path); file != "" {
				c.File(file)
				return
			}
		}
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	var subscribeMW []gin.HandlerFunc
	if a.cfg.RateLimit.Enable {
		subscribeMW = append(subscribeMW, middleware.RateLimit(a.rateLimiter(), a.logger))
	}
	svc := subscriber.NewService(subscriber.NewGormStore(a.db), a.logger)
	subscriber.NewHandler(svc).RegisterRoutes(r, subscribeMW...)

	health.RegisterRoutes(r, a.db, a.sched)
}

func (a *App) staticDir() string {
	dir := a.cfg.StaticDir()
	if dir == "" {
		return ""
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		a.logger.Warn("static dir not found, admin page disabled")
		return ""
	}
	return dir
}

// resolveStatic maps a request path to a regular file inside dir, or "".
func resolveStatic(dir, reqPath string) string {
	clean := path.Clean("/" + reqPath)
	candidates := []string{clean}
	if clean == "/" {
		candidates = adminPages
	}
	for _, name := range candidates {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			return full
		}
	}
	return ""
}
