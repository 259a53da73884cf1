package health

import (
	"context"
	"time"

	"github.com/edgeflowers/newsletter/internal/database"
	"github.com/edgeflowers/newsletter/internal/pkg/cron"
	"github.com/edgeflowers/newsletter/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

type Status struct {
	Status   string `json:"status"`
	Database bool   `json:"database"`
}

// RegisterRoutes mounts GET /health and GET /health/cron. sched may be nil.
func RegisterRoutes(rg gin.IRouter, db *gorm.DB, sched *cron.Scheduler) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		dbOK := db != nil && database.Ping(ctx, db) == nil

		if !dbOK {
			response.ServiceUnavailable(c, Status{Status: "degraded", Database: false})
			return
		}
		response.OK(c, Status{Status: "ok", Database: true})
	})

	rg.GET("/health/cron", func(c *gin.Context) {
		if sched == nil {
			response.OK(c, []cron.JobInfo{})
			return
		}
		response.OK(c, sched.List())
	})
}
