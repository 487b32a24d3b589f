package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/johsantss21/Thays-admin/internal/apitokens"
	"github.com/johsantss21/Thays-admin/pkg/config"
	"github.com/johsantss21/Thays-admin/pkg/db"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

func main() {
	name := flag.String("name", "", "label for the automation client (required)")
	ttl := flag.Duration("ttl", 0, "token lifetime, e.g. 2160h; zero never expires")
	flag.Parse()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "apitoken"})
	_ = godotenv.Load()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "missing -name")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := apitokens.NewService(apitokens.ServiceParams{
		Repo:   apitokens.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create api token service", err)
		os.Exit(1)
	}

	var expiresAt *time.Time
	if *ttl > 0 {
		at := time.Now().Add(*ttl)
		expiresAt = &at
	}
	raw, token, err := svc.Issue(ctx, *name, expiresAt)
	if err != nil {
		logg.Error(ctx, "failed to issue api token", err)
		os.Exit(1)
	}

	// The raw token is only ever shown here.
	fmt.Printf("id:    %s\nname:  %s\ntoken: %s\n", token.ID, token.Name, raw)
}
