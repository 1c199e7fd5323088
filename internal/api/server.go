package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atlab/internal/assistant"
	"atlab/internal/auth"
	"atlab/internal/booking"
	"atlab/internal/gradebook"
	"atlab/internal/httpmiddleware"
	"atlab/internal/metrics"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// RosterSource reads the gradebook mirror of student signups.
type RosterSource interface {
	Roster(ctx context.Context) ([]gradebook.RosterRow, error)
}

// Options wires the HTTP layer to the booking engine and its collaborators.
type Options struct {
	Engine     *booking.Engine
	Assistant  *assistant.Assistant
	Passcode   *auth.Passcode
	SigningKey string
	Issuer     string
	AdminTTL   time.Duration
	RatePerMin int
	Health     map[string]HealthCheck
	// Gradebook is nil when the course gradebook is not configured.
	Gradebook RosterSource
}

// Server holds handler dependencies.
type Server struct {
	opts Options
}

// New creates a server. A nil Assistant answers with an empty knowledge table.
func New(opts Options) *Server {
	if opts.Assistant == nil {
		opts.Assistant = assistant.New(nil)
	}
	if opts.AdminTTL <= 0 {
		opts.AdminTTL = 8 * time.Hour
	}
	return &Server{opts: opts}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(observe())
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(s.opts.RatePerMin, s.opts.RatePerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	v1.GET("/campuses", s.campuses)
	v1.GET("/availability", s.availability)
	v1.GET("/signups", s.signups)
	v1.POST("/bookings", s.book)
	v1.POST("/assistant/ask", s.ask)
	v1.POST("/admin/login", httpmiddleware.NewTokenBucket(5, 5).GinMiddleware(), s.login)

	admin := v1.Group("/admin", auth.AdminAuth(s.opts.SigningKey, s.opts.Issuer))
	admin.GET("/bookings", s.adminBookings)
	admin.GET("/today.csv", s.todayCSV)
	admin.POST("/reschedule", s.reschedule)
	admin.POST("/grade", s.grade)
	admin.POST("/cancel", s.cancel)
	admin.GET("/gradebook", s.gradebookRoster)
	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.opts.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
