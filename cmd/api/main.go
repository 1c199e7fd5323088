package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"atlab/internal/api"
	"atlab/internal/assistant"
	"atlab/internal/auth"
	"atlab/internal/availability"
	"atlab/internal/booking"
	"atlab/internal/config"
	"atlab/internal/gradebook"
	"atlab/internal/notify"
	"atlab/internal/queue"
	"atlab/internal/store"
	"atlab/migrations"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()
	health := map[string]api.HealthCheck{}

	var bookings booking.Store
	switch cfg.StoreBackend {
	case "memory":
		bookings = booking.NewMemoryStore()
	case "csv":
		bookings = booking.NewCSVStore(cfg.CSVPath)
	default:
		db, err := store.NewDB(cfg.DatabaseURL, 5*time.Second)
		if db == nil {
			return err
		}
		if err != nil {
			log.Printf("warning: db not reachable: %v", err)
		} else if err := migrations.Up(ctx, db.Client); err != nil {
			return err
		}
		defer db.Close()
		bookings = booking.NewPostgresStore(db.Client)
		health["db"] = db.Healthy
	}

	var redisClient *store.Redis
	if cfg.QueueBackend != "memory" || cfg.LockBackend != "memory" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// No worker shares this process; confirmations are logged and dropped.
		mem := queue.NewInMemory(256)
		go drain(ctx, mem)
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	var locker booking.Locker
	if cfg.LockBackend == "memory" {
		locker = store.NewLocalLocker()
	} else {
		locker = store.NewRedisLocker(redisClient.Client, cfg.LockTTL, cfg.LockTTL)
	}

	kb, err := assistant.Load(cfg.KnowledgePath)
	if err != nil {
		log.Printf("warning: knowledge file %s not loaded: %v", cfg.KnowledgePath, err)
	}

	passcode, err := auth.NewPasscode(cfg.AdminPasscode, cfg.AdminPasscodeHash)
	if err != nil {
		return err
	}

	validator := booking.Validator{Domains: cfg.EmailDomains, IDPrefix: cfg.StudentIDPrefix}
	engine := booking.NewEngine(bookings, booking.Options{
		Schedule:  availability.NewSchedule(nil, cfg.HorizonDays, cfg.SlotMinutes, cfg.Location()),
		Locker:    locker,
		Notifier:  notify.NewQueueNotifier(q),
		Validator: &validator,
	})

	var roster api.RosterSource
	if cfg.CanvasCourseID != 0 || cfg.CanvasSkip {
		rec := gradebook.NewRecorder(gradebook.New(cfg.CanvasBaseURL, cfg.CanvasToken, cfg.CanvasSkip), int64(cfg.CanvasCourseID))
		if _, err := rec.EnsureColumns(ctx, booking.DefaultExams); err != nil {
			log.Printf("warning: gradebook roster unavailable: %v", err)
		} else {
			roster = rec
		}
	}

	srv := api.New(api.Options{
		Engine:     engine,
		Assistant:  assistant.New(kb),
		Passcode:   passcode,
		SigningKey: cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		AdminTTL:   cfg.AdminTTL,
		RatePerMin: cfg.RateLimitPerMin,
		Health:     health,
		Gradebook:  roster,
	})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store=%s, queue=%s, lock=%s)", cfg.HTTPPort, cfg.StoreBackend, cfg.QueueBackend, cfg.LockBackend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	log.Println("Server exited")
	return nil
}

func drain(ctx context.Context, q queue.Queue) {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return
	}
	for msg := range msgs {
		log.Printf("dropping %s notification: no worker attached to the memory queue", msg.Type)
	}
}
