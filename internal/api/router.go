package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/steemit/securehide/internal/models"
	"github.com/steemit/securehide/internal/securehide"
	"github.com/steemit/securehide/pkg/config"
	"github.com/steemit/securehide/pkg/logging"
)

// PostFinder loads forum posts
type PostFinder interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByTopicAndNumber(ctx context.Context, topicID int64, postNumber int32) (*models.Post, error)
	ListByTopic(ctx context.Context, topicID int64, page, limit int) ([]*models.Post, error)
}

// HealthChecker is a dependency reported by the health endpoint
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RequestIDHeader is logged with failed requests when the proxy sets it
const RequestIDHeader = "X-Request-Id"

// Options holds the router dependencies
type Options struct {
	Users     UserFinder
	Posts     PostFinder
	Evaluator *securehide.Evaluator
	Config    *config.SecureHideConfig
	// Checks are reported by /health, keyed by name.
	Checks map[string]HealthChecker
}

// Router sets up API routes
type Router struct {
	handler   *JSONRPCHandler
	users     UserFinder
	posts     PostFinder
	evaluator *securehide.Evaluator
	filter    *securehide.RawFilter
	policy    *bluemonday.Policy
	cfg       *config.SecureHideConfig
	checks    map[string]HealthChecker
	logger    *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(opts Options) *Router {
	router := &Router{
		handler:   NewJSONRPCHandler(),
		users:     opts.Users,
		posts:     opts.Posts,
		evaluator: opts.Evaluator,
		filter:    securehide.NewRawFilter(opts.Evaluator, opts.Config.Enabled, opts.Config.RawPlaceholder),
		policy:    NewBlockPolicy(),
		cfg:       opts.Config,
		checks:    opts.Checks,
		logger:    logging.WithComponent("api-router"),
	}

	router.registerMethods()

	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	viewer := engine.Group("/", r.guardianMiddleware())

	viewer.GET("/secure-hide/posts/:post_id", r.showHiddenBlocks)

	viewer.GET("/posts/:post_id/raw", r.postRaw)
	viewer.GET("/raw/:topic_id", r.topicRaw)
	viewer.GET("/raw/:topic_id/:post_number", r.topicPostRaw)

	viewer.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	r.handler.RegisterMethod("secure_hide.get_status", r.getStatus)
	r.handler.RegisterMethod("secure_hide.get_reason", r.getReason)
}

// abortWithError writes err as a JSON error body. Anything that is not an *Error
// is logged and reported as a 500 without details.
func (r *Router) abortWithError(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}

	userID, _ := guardianFrom(c).UserID()
	logging.WithRequest(c.GetHeader(RequestIDHeader), userID).Error("Request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(gin.H, len(names))
	for _, name := range names {
		if err := r.checks[name].Health(ctx); err != nil {
			r.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "OK"
	}

	body := gin.H{
		"status":       "OK",
		"service":      "securehide-api",
		"dependencies": deps,
	}
	if status != http.StatusOK {
		body["status"] = "UNAVAILABLE"
	}
	c.JSON(status, body)
}
