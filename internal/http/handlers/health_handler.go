// Liveness endpoint.
//
// GET /health reports process liveness plus the reachability of the two
// stateful collaborators (Redis and the shared SQLite database). The
// endpoint always answers 200 while the process is up; dependency state is
// carried in the body so orchestrators can stay on a simple liveness probe
// while dashboards still see degradation.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks reachability of one dependency.
type Pinger func(ctx context.Context) error

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	// Version is the build version stamped into the response.
	Version string
	// RedisPing and DBPing probe the stateful dependencies; nil probes are
	// reported as "disabled".
	RedisPing Pinger
	DBPing    Pinger
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ok(c, http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.Version,
		"redis":   probe(ctx, h.RedisPing),
		"db":      probe(ctx, h.DBPing),
	})
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}
