package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	red "github.com/redis/go-redis/v9"
)

// HealthHandler exposes liveness and dependency reachability.
type HealthHandler struct {
	startedAt time.Time
	pool      *pgxpool.Pool
	redis     *red.Client
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *red.Client) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now().UTC(),
		pool:      pool,
		redis:     redisClient,
	}
}

// Status reports liveness plus a best-effort check of each dependency. A down
// cache degrades the status but keeps the endpoint at 200: the service still
// serves reads directly.
func (h *HealthHandler) Status(c *gin.Context) {
	checks := map[string]string{}
	status := "ok"
	code := http.StatusOK

	if h.pool != nil {
		if err := h.pool.Ping(c.Request.Context()); err != nil {
			checks["postgres"] = "down"
			status = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "down"
			if status == "ok" {
				status = "degraded"
			}
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		StartedAt: h.startedAt,
		Checks:    checks,
	})
}
