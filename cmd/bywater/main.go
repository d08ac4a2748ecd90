package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/bywater/internal/backup"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/logging"
	"github.com/dukerupert/bywater/internal/server"
	"github.com/dukerupert/bywater/internal/workflow"
)

func main() {
	port := os.Getenv("BYWATER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BYWATER_DB_PATH")
	if dbPath == "" {
		dbPath = "bywater.db"
	}

	logger := logging.Setup(os.Getenv("BYWATER_LOG_LEVEL"), os.Getenv("BYWATER_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Claims wait for a parent unless explicitly configured otherwise.
	wfCfg := workflow.Config{
		RequireApproval: os.Getenv("BYWATER_REQUIRE_APPROVAL") != "false",
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("BYWATER_BACKUP_ENDPOINT"),
			Bucket:    os.Getenv("BYWATER_BACKUP_BUCKET"),
			Region:    os.Getenv("BYWATER_BACKUP_REGION"),
			AccessKey: os.Getenv("BYWATER_BACKUP_ACCESS_KEY"),
			SecretKey: os.Getenv("BYWATER_BACKUP_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("BYWATER_BACKUP_PASSPHRASE"),
	}

	srv := server.New(db, wfCfg, backupCfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Bywater running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
