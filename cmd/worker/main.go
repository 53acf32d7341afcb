package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"checkin/internal/checkin"
	"checkin/internal/config"
	"checkin/internal/queue"
	"checkin/internal/store"
)

// Worker consumes recorded check-ins and runs fraud analytics over
// device digests. It is advisory only: attendance records are immutable
// once written, so findings are logged for the review workflow, never
// written back.
func main() {
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

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisList(redisClient.Client, "checkin:recorded")
	}

	records := checkin.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for recorded check-ins...")
	for msg := range messages {
		if msg.Type != queue.TypeRecorded {
			continue
		}

		id := string(msg.Body)
		rec, err := records.GetRecord(ctx, id)
		if err != nil {
			log.Printf("fetch record %s failed: %v", id, err)
			continue
		}
		if rec.DeviceDigest == "" {
			continue
		}

		reuse, err := records.CountStudentsWithDigest(ctx, rec.SessionID, rec.DeviceDigest)
		if err != nil {
			log.Printf("digest reuse count for %s failed: %v", id, err)
			continue
		}
		if reuse >= cfg.DigestReuseThreshold {
			log.Printf("FRAUD SIGNAL: session %s digest %.12s shared by %d students (record %s, protocol %s)",
				rec.SessionID, rec.DeviceDigest, reuse, rec.ID, rec.ProtocolNumber)
		}
	}

	log.Println("worker stopped")
}
