package webserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/config"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/metrics"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

type UserStore interface {
	Create(ctx context.Context, user *types.User) error
	FindByEmail(ctx context.Context, email string) (*types.User, error)
	FindByID(ctx context.Context, id uint64) (*types.User, error)
}

type HistoryStore interface {
	Create(ctx context.Context, rec *types.SearchHistory) error
	List(ctx context.Context, f types.HistoryFilter) ([]types.SearchHistory, error)
}

// Invoker is satisfied by *core.Adapter.
type Invoker interface {
	Provider() string
	Invoke(ctx context.Context, req core.Request) (core.Result, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// HistoryPublisher announces a stored history record to other services.
type HistoryPublisher func(ctx context.Context, rec *types.SearchHistory) error

// Deps are the collaborators the HTTP layer is built from. Revocations and
// Limiter fall back to in-process implementations when nil.
type Deps struct {
	Users       UserStore
	Histories   HistoryStore
	LLM         Invoker
	Revocations TokenRevoker
	Limiter     Limiter
	Metrics     *metrics.Recorder
	Publish     HistoryPublisher
}

// New builds the engine. Background work started for in-process fallbacks stops with ctx.
func New(ctx context.Context, cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(ctx, r, cfg, deps)
	return r
}

func attachRoutes(ctx context.Context, r *gin.Engine, cfg config.Config, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"Content-Length", "ETag", warningsHeader},
		AllowCredentials: true,
	}))

	if deps.Revocations == nil {
		deps.Revocations = NewMemoryRevocations()
	}
	if deps.Limiter == nil {
		deps.Limiter = NewRateLimiter(ctx, cfg.RateLimit, cfg.RateWindow)
	}
	secret := []byte(cfg.JWTSecret)

	authH := NewAuth(deps.Users, deps.Revocations, secret, cfg.JWTTTL)
	histH := NewHistory(deps.Histories, deps.Publish, bluemonday.StrictPolicy())
	llmH := NewLLM(deps.LLM, deps.Metrics, cfg.LLMTimeout)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", authH.Register)
		v1.POST("/auth/login", authH.Login)

		secured := v1.Group("")
		secured.Use(JWTMiddleware(secret, deps.Revocations))
		secured.GET("/auth/me", authH.Me)
		secured.POST("/auth/logout", authH.Logout)
		secured.GET("/search-histories", histH.List)
		secured.POST("/search-histories", histH.Create)
		secured.POST("/llm/invoke", RateLimitMiddleware(deps.Limiter, deps.Metrics, "llm_invoke"), llmH.Invoke)
	}
}
