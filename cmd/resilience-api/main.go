package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dirsoacha/resilience-api/internal/alerting"
	"github.com/dirsoacha/resilience-api/internal/api"
	"github.com/dirsoacha/resilience-api/internal/assistant"
	"github.com/dirsoacha/resilience-api/internal/config"
	"github.com/dirsoacha/resilience-api/internal/events"
	"github.com/dirsoacha/resilience-api/internal/geodata"
	"github.com/dirsoacha/resilience-api/internal/logging"
	"github.com/dirsoacha/resilience-api/internal/notify"
	"github.com/dirsoacha/resilience-api/internal/ollama"
	"github.com/dirsoacha/resilience-api/internal/push"
	"github.com/dirsoacha/resilience-api/internal/repository"
	"github.com/dirsoacha/resilience-api/internal/stream"
)

type stores struct {
	subs    push.Store
	history repository.NotificationLog
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Push.Store {
	case "sqlite":
		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		return &stores{subs: db, history: db, close: func() { db.Close() }}, nil
	case "redis":
		rs, err := repository.NewRedisStore(ctx, cfg.Push.RedisURL)
		if err != nil {
			return nil, err
		}
		// Redis holds subscriptions only; the log stays in process memory.
		return &stores{subs: rs, history: repository.NewMemoryStore(), close: func() { rs.Close() }}, nil
	default:
		mem := repository.NewMemoryStore()
		return &stores{subs: mem, history: mem, close: func() {}}, nil
	}
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logSink := logging.Setup(cfg.Logging)
	defer logSink.Close()

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "store", cfg.Push.Store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logging.Fatalf("Failed to initialize %s store: %v", cfg.Push.Store, err)
	}
	defer st.close()

	broadcaster := stream.NewBroadcaster()

	vapid := push.VAPID{
		PublicKey:  cfg.Push.VAPIDPublicKey,
		PrivateKey: cfg.Push.VAPIDPrivateKey,
		Subject:    cfg.Push.VAPIDSubject,
	}
	if !vapid.Configured() {
		slog.Warn("VAPID keys missing or invalid, push delivery disabled; run vapid-keys to generate them")
	}
	sender := push.NewWebPushSender(vapid, cfg.Push.TTL, &http.Client{Timeout: 30 * time.Second})
	relay := push.NewRelay(st.subs, sender, vapid, cfg.Push.Concurrency)

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer publisher.Close()

	deps := notify.Deps{
		Relay:     relay,
		Log:       st.history,
		Publisher: publisher,
		Live:      broadcaster,
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logging.Fatalf("Failed to initialize telegram notifier: %v", err)
		}
		deps.Messenger = tg
	}

	dispatcher := notify.NewDispatcher(cfg.Push, deps)
	dispatcher.Start(ctx)

	tracker := alerting.NewTracker(alerting.Thresholds{
		High:     cfg.Alerts.HighThreshold,
		Medium:   cfg.Alerts.MediumThreshold,
		Low:      cfg.Alerts.LowThreshold,
		Combined: cfg.Alerts.CombinedThreshold,
	}, cfg.Alerts.SessionTTL, dispatcher.Notify)
	tracker.SetLimits(alerting.Limits{
		MaxSessions: cfg.Alerts.MaxSessions,
		MaxReports:  cfg.Alerts.MaxSessionReports,
	})
	go tracker.Run(ctx, cfg.Alerts.SweepInterval)

	zones, err := geodata.Load(cfg.Data.ZonesPath)
	if err != nil {
		slog.Warn("zone data unavailable, zone routes disabled", "path", cfg.Data.ZonesPath, "error", err)
	}

	llm := ollama.NewClient(cfg.Ollama)
	if !llm.Configured() {
		slog.Warn("OLLAMA_API_KEY not set, AI routes will fail upstream")
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Session-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Session-ID", "X-Request-ID"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.RateLimit.GlobalRPS))

	handler := api.NewHandler(api.Deps{
		Tracker:       tracker,
		Subscriptions: relay,
		Sender:        dispatcher,
		History:       st.history,
		Live:          broadcaster,
		Zones:         zones,
		Assistant:     assistant.New(llm),
		OllamaLocal:   cfg.Ollama.LocalURL,
		SurveyCSV:     cfg.Data.CSVPath,
		AIRateLimit:   cfg.RateLimit.AIRPS,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	broadcaster.Close() // ends live websocket streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	// No new reports can arrive now; deliver the queued crossings before cancelling.
	dispatcher.Stop()
	cancel()

	slog.Info("shutdown complete")
}
