package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/prefkit/component"
)

// Reporter returns the combined health of the running components.
type Reporter func(ctx context.Context) component.Report

// Health reports every component. The status code is 503 only when a
// component is unhealthy; degraded still answers 200.
func Health(serviceName string, report Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := component.Report{Status: component.StatusHealthy}
		if report != nil {
			r = report(c.Request.Context())
		}

		code := http.StatusOK
		if r.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"service":    serviceName,
			"status":     r.Status,
			"version":    r.Version,
			"components": r.Components,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Readiness answers 200 once every component is at least degraded, so a
// workspace with a broken settings file still takes traffic.
func Readiness(serviceName string, report Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ready", http.StatusOK
		if report != nil && report(c.Request.Context()).Status == component.StatusUnhealthy {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"service":   serviceName,
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Liveness only confirms the process is serving HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": serviceName, "status": "alive"})
	}
}
