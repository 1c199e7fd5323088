package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"atlab/internal/booking"
	"atlab/internal/config"
	"atlab/internal/gradebook"
	"atlab/internal/notify"
	"atlab/internal/queue"
	"atlab/internal/store"
)

// Worker consumes booking confirmations, emails the student and mirrors
// the slot into the course gradebook.
func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatal("worker needs QUEUE_BACKEND=redis to share messages with the API")
	}
	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet, will keep retrying", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)

	p := &notify.Processor{Retry: q, MaxAttempts: 5}
	if cfg.SMTPHost != "" {
		p.Mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Println("SMTP not configured (SMTP_HOST not set), confirmations will not be emailed")
	}

	if cfg.CanvasCourseID != 0 || cfg.CanvasSkip {
		client := gradebook.New(cfg.CanvasBaseURL, cfg.CanvasToken, cfg.CanvasSkip)
		rec := gradebook.NewRecorder(client, int64(cfg.CanvasCourseID))
		if _, err := rec.EnsureColumns(ctx, booking.DefaultExams); err != nil {
			log.Printf("WARNING: gradebook columns unavailable: %v", err)
		} else {
			p.Recorder = rec
			log.Printf("gradebook mirroring enabled (course %d, skip=%v)", cfg.CanvasCourseID, cfg.CanvasSkip)
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	p.Run(ctx, messages)
	log.Println("worker stopped")
}
