package app

import (
	"net/url"
	"strings"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func newCORS(cfg *config.AppConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.AllowsAnyOrigin() {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return originAllowed(patterns, origin)
		}
	}
	return cors.New(corsConfig)
}

// originAllowed matches origin against full origins ("https://a.example.com")
// and host patterns ("a.example.com", "*.example.com", "localhost:*").
func originAllowed(patterns []string, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	host := extractOriginHost(origin)
	for _, pattern := range patterns {
		if strings.EqualFold(pattern, origin) {
			return true
		}
		if strings.Contains(pattern, "://") {
			continue
		}
		if matchOriginPattern(strings.ToLower(pattern), strings.ToLower(host)) {
			return true
		}
	}
	return false
}

// extractOriginHost returns the "host[:port]" portion of an origin URL.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern reports whether host matches the given wildcard pattern.
func matchOriginPattern(pattern, host string) bool {
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	if strings.HasSuffix(pattern, ":*") {
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
