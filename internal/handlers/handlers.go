package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/apperr"
	"postura/api/internal/config"
	"postura/api/internal/middleware"
	"postura/api/internal/service"
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Services service.Services
	Tokens   middleware.TokenLookup
	Admins   middleware.InternalTokenLookup
	Database Pinger
	// Cache backs rate limiting and the health check. Nil disables both.
	Cache *redis.Client
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	users    *service.UserService
	admin    *service.AdminService
	catalog  *service.CatalogService
	firmware *service.FirmwareService
	support  *service.SupportService
	tokens   middleware.TokenLookup
	admins   middleware.InternalTokenLookup
	db       Pinger
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, opts Options) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     opts.Services.Auth,
		users:    opts.Services.Users,
		admin:    opts.Services.Admin,
		catalog:  opts.Services.Catalog,
		firmware: opts.Services.Firmware,
		support:  opts.Services.Support,
		tokens:   opts.Tokens,
		admins:   opts.Admins,
		db:       opts.Database,
		cache:    opts.Cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", middleware.MetricsHandler())

	authenticated := middleware.Authenticated(h.tokens)
	self := middleware.SelfAuthenticated(h.tokens, "id")
	admin := middleware.AdminAuthenticated(h.admins)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/email", h.rateLimit("login"), h.EmailLogin)
		auth.POST("/facebook", h.rateLimit("facebook"), h.FacebookLogin)
		auth.DELETE("", authenticated, h.Logout)
	}

	users := v1.Group("/users")
	{
		users.POST("", h.Signup)
		users.GET("/confirm-email", h.ConfirmEmail)
		users.POST("/password-reset", h.rateLimit("password-reset"), h.RequestPasswordReset)
		users.PUT("/password-reset", h.ResetPassword)

		account := users.Group("/:id", self)
		account.GET("", h.GetUser)
		account.PATCH("", h.UpdateUser)
		account.POST("/confirmation", h.ResendConfirmation)
		account.POST("/sessions", h.RecordSession)
		account.GET("/favorite-workouts", h.FavoriteWorkouts)
		account.GET("/training-plans", h.UserTrainingPlans)
		account.POST("/support", h.SubmitSupport)
	}

	v1.GET("/workouts", authenticated, h.ListWorkouts)
	v1.GET("/workouts/:workoutId", authenticated, h.GetWorkout)
	v1.GET("/training-plans", authenticated, h.ListTrainingPlans)
	v1.GET("/firmware", authenticated, h.LatestFirmware)

	adminGroup := v1.Group("/admin")
	{
		adminGroup.POST("/login", h.rateLimit("admin-login"), h.AdminLogin)
		adminGroup.DELETE("/logout", admin, h.AdminLogout)
		adminGroup.POST("/catalog/refresh", admin, h.RefreshCatalog)
		adminGroup.POST("/firmware", admin, h.PublishFirmware)
	}
}

func (h HandlerSet) rateLimit(prefix string) gin.HandlerFunc {
	rl := h.cfg.RateLimit
	if !rl.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(h.cache, rl.Limit, rl.Window, rl.Block, prefix, h.log)
}

// respondError writes the public message of err with its kind's status.
// Dependency failures are logged with their cause.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindDependency {
		h.log.Error().
			Err(err).
			Str("route", c.FullPath()).
			Str("request_id", c.GetString(middleware.ContextRequestID)).
			Msg("request failed")
	}
	c.JSON(kind.Status(), gin.H{"error": apperr.Public(err)})
}

// bindBody decodes a JSON object body. An empty body is an empty object.
func bindBody(c *gin.Context) (map[string]any, error) {
	body := map[string]any{}
	if c.Request.Body == nil {
		return body, nil
	}
	decoder := json.NewDecoder(c.Request.Body)
	if err := decoder.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, apperr.Validation(`"value" must be an object`)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func queryMap(c *gin.Context) map[string]any {
	query := map[string]any{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	return query
}

// pathUserID is only reached behind SelfAuthenticated, which has already
// matched the parameter against a stored token.
func pathUserID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return primitive.NilObjectID, apperr.Authorization()
	}
	return id, nil
}

func (h HandlerSet) withBody(c *gin.Context, handle func(body map[string]any) (int, any, error)) {
	body, err := bindBody(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status, payload, err := handle(body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
