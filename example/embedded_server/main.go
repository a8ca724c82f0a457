package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ochse/webwatch"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	w, err := webwatch.New("watch.db", webwatch.Options{Concurrency: 4})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Check every minute; the HTTP API allows manual triggers too.
	sched := webwatch.NewScheduler(w, time.Minute, nil)
	if err := sched.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer sched.Stop()

	srv := webwatch.NewHTTPServer(":8080", "/api", os.Getenv("WEBWATCH_WORKER_SECRET"), w)
	log.Println("webwatch API on :8080/api")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	_ = srv.Close()
}
