package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"easybuk/internal/config"
	sl "easybuk/internal/lib/logger"
	"easybuk/internal/storage/postgres"
)

// grantadmin elevates a user to admin. Elevation is deliberately not exposed
// over HTTP: it runs out of band by an operator with database access.
func main() {
	var (
		configPath  = flag.String("config", "./config/config.yaml", "path to config file")
		userID      = flag.Int64("user-id", 0, "id of the user to elevate")
		permissions = flag.String("permissions", "users,services,payments", "comma-separated permission set")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *userID == 0 {
		log.Error("missing required -user-id flag")
		os.Exit(1)
	}

	cfg := config.MustLoad(*configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	perms := strings.Split(*permissions, ",")

	if err := storage.GrantAdmin(ctx, *userID, perms); err != nil {
		log.Error("failed to grant admin", sl.Err(err))
		os.Exit(1)
	}

	log.Info("admin granted", slog.Int64("user_id", *userID))
}
