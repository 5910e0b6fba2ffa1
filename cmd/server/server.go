package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	hzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	"Attendify/config"
	"Attendify/internal/cache"
	"Attendify/internal/dispatch"
	"Attendify/internal/gateway"
	"Attendify/internal/handler"
	"Attendify/internal/middleware"
	"Attendify/internal/normalize"
	"Attendify/internal/notice"
	"Attendify/internal/prefs"
	"Attendify/internal/queue"
	"Attendify/internal/report"
	"Attendify/internal/repository"
	"Attendify/internal/router"
	"Attendify/internal/schedule"
	"Attendify/internal/session"
	"Attendify/internal/syncer"
	"Attendify/pkg/logger"
	"Attendify/pkg/metrics"
	"Attendify/pkg/otel"
	"Attendify/pkg/snowflake"
	"Attendify/pkg/token"
	"Attendify/storage"
	"Attendify/storage/database"
	"Attendify/storage/mq"
	"Attendify/storage/redis"
)

func main() {
	// 日志部分
	cfg := &config.Cfg
	if err := logger.Init(cfg.Logging("server")); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if cfg.OTelEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, cfg.Telemetry("server"))
		if err != nil {
			log.Warn("Failed to initialize OpenTelemetry, continuing without export", zap.Error(err))
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = shutdown(sctx)
			}()
		}
	}
	if err := metrics.InitMetrics(); err != nil {
		log.Warn("Failed to initialize metrics", zap.Error(err))
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		log.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// token 在中间件前初始化，middleware 依赖 token
	if err := token.Init(cfg.JWTSecret,
		time.Duration(cfg.JWTExpireMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshDays)*24*time.Hour,
	); err != nil {
		log.Fatal("Failed to initialize token package", zap.Error(err))
	}
	if err := middleware.Init(token.GetGenerator(), log); err != nil {
		log.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	rdb := redis.Client()
	prefix := redis.Prefix()
	loc := cfg.Location()
	norm := normalize.New(loc)

	store := prefs.NewRedisStore(rdb, prefix, cache.NewCircuitBreaker("prefs", 5, 30*time.Second, log))
	gw, err := gateway.New(gateway.Options{
		BaseURL: cfg.RemoteBaseURL,
		Timeout: cfg.RemoteTimeout(),
		Prefs:   store,
		Logger:  log.Named("gateway"),
	})
	if err != nil {
		log.Fatal("Failed to create remote gateway", zap.Error(err))
	}

	engine := syncer.New(syncer.Options{
		Source:     gw,
		Normalizer: norm,
		Store:      cache.NewSnapshotCache(rdb, prefix, cache.NewCircuitBreaker("snapshot", 5, 30*time.Second, log)),
		Logger:     log.Named("sync"),
	})

	notices := notice.NewBoard(cfg.NoticeTTL())
	sess := session.New(session.Options{
		Gateway:    gw,
		Engine:     engine,
		Prefs:      store,
		Normalizer: norm,
		Notices:    notices,
		Logger:     log.Named("session"),
	})
	gw.SetExpiryNotifier(sess)

	deliveries := repository.NewMailDeliveryRepository(database.DB())
	outbox := queue.NewOutbox(deliveries, mq.Publisher{}, cfg.MailOutboxQueue, log.Named("outbox")).
		WithLocker(cache.NewLocker(rdb, prefix))

	actions := dispatch.New(dispatch.Options{
		Gateway:    gw,
		Engine:     engine,
		Session:    sess,
		Notices:    notices,
		Outbox:     outbox,
		Locator:    fixedLocator(cfg, log),
		Normalizer: norm,
		Logger:     log.Named("dispatch"),
		Location:   loc,
		Device:     "attendify-companion",
	})

	reports := report.NewService(report.Options{
		Source:    engine,
		Sender:    actions,
		Recipient: cfg.ReportRecipient,
		Location:  loc,
		Logger:    log.Named("report"),
	})

	// 恢复上次会话，先展示缓存快照再后台同步
	if ident, ok := sess.Restore(ctx); ok {
		log.Info("Session restored", zap.String("user_id", ident.ID))
		go schedule.ResyncOnce(ctx, engine, sess, log)
	}

	ticker := schedule.NewTicker(engine, cfg.TickInterval(), log.Named("ticker")).WithLocation(loc)
	go ticker.Run(ctx)
	if interval := cfg.SyncInterval(); interval > 0 {
		go schedule.RunResyncLoop(ctx, engine, sess, interval, log.Named("resync"))
	}

	h := handler.New(handler.Options{
		Session:    sess,
		State:      engine,
		Dashboards: ticker,
		Actions:    actions,
		Reports:    reports,
		Deliveries: deliveries,
		Tokens:     token.GetGenerator(),
		CSRFToken:  middleware.CSRFToken,
		Logger:     log.Named("api"),
	})

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	opts := []hzconfig.Option{server.WithHostPorts(addr)}
	mw := router.Middlewares{
		Recover: middleware.RecoverMiddleware(middleware.RecoverConfig{Logger: log, IsProduction: cfg.IsProduction()}),
		CORS:    middleware.CORSMiddleware(),
		Auth:    middleware.AuthMiddleware(),
		CSRF:    middleware.CSRFMiddleware(cfg.SessionSecret, cfg.CSRFSecret),
	}
	if cfg.OTelEnabled {
		tracerOpt, tracing := middleware.NewServerTracerConfig()
		opts = append(opts, tracerOpt)
		mw.Tracing = tracing
	}
	if telemetry, err := middleware.OpenTelemetryMiddleware(); err != nil {
		log.Warn("Failed to create HTTP instruments", zap.Error(err))
	} else {
		mw.Telemetry = telemetry
	}
	if cfg.RateLimitEnabled {
		mw.LoginLimit = middleware.RateLimitMiddleware(
			middleware.NewRateLimiter(rdb, prefix, middleware.LoginRateLimitConfig), log)
		mw.APILimit = middleware.RateLimitMiddleware(
			middleware.NewRateLimiter(rdb, prefix, middleware.DefaultRateLimitConfig(cfg.RateLimitRPS)), log)
	}

	hz := server.Default(opts...)
	router.Register(hz.Engine, h, mw)

	log.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("addr", addr),
		zap.String("remote", cfg.RemoteBaseURL),
		zap.String("environment", cfg.Environment),
	)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		log.Info("Initiating graceful shutdown...")
		engine.Cancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := hz.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	hz.Spin()

	log.Info("Server shutting down gracefully")
}

// fixedLocator GEO_LAT/GEO_LNG 都能解析时签到附带固定坐标
func fixedLocator(cfg *config.Config, log *zap.Logger) dispatch.Locator {
	if cfg.GeoLat == "" || cfg.GeoLng == "" {
		return nil
	}
	lat, errLat := strconv.ParseFloat(cfg.GeoLat, 64)
	lng, errLng := strconv.ParseFloat(cfg.GeoLng, 64)
	if errLat != nil || errLng != nil {
		log.Warn("Ignoring malformed fixed location",
			zap.String("lat", cfg.GeoLat),
			zap.String("lng", cfg.GeoLng),
		)
		return nil
	}
	return dispatch.FixedLocator(lat, lng)
}
