package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/core"
	_ "github.com/VyshnaviVunnamatla/DualAgents-AB/src/ai/providers"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/config"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/data"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/metrics"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/webserver"
	aiconfig "github.com/VyshnaviVunnamatla/DualAgents-AB/src/config"
)

var allModels = []interface{}{
	&types.User{}, &types.SearchHistory{},
}

func migrate(db *gorm.DB) {
	if err := db.AutoMigrate(allModels...); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}
}

func main() {
	cfg := config.Load()
	if os.Getenv("GIN_MODE") == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	adapter, err := core.NewAdapter(aiconfig.LoadAIFromEnv().ProviderConfig())
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	log.Printf("llm: provider %s, model %s", adapter.Provider(), adapter.Model())

	db := data.MustMySQL(cfg.MySQLDSN)
	migrate(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	deps := webserver.Deps{
		Users:     data.NewUsers(db),
		Histories: data.NewHistories(db),
		LLM:       adapter,
		Metrics:   recorder,
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = data.MustRedis(cfg.RedisURL)
		deps.Revocations = data.NewRevocations(rdb)
		deps.Limiter = data.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow)
		deps.Publish = func(ctx context.Context, rec *types.SearchHistory) error {
			return data.PublishHistory(ctx, rdb, rec)
		}
	} else {
		log.Printf("REDIS_URL not set; using in-process rate limiting and token revocation")
	}

	ctx, cancel := context.WithCancel(context.Background())

	router := webserver.New(ctx, cfg, deps)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		reloader, err := webserver.NewTLSReloader(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			log.Fatalf("tls: %v", err)
		}
		go reloader.Watch(ctx, 5*time.Minute)
		httpSrv.TLSConfig = reloader.Config()
	}

	go func() {
		var err error
		if httpSrv.TLSConfig != nil {
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("DualAgents API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
