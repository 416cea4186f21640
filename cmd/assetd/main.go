// Command assetd runs the asset upload service.
package main

import (
	"context"
	"os"
	"time"

	"github.com/dmitrymomot/assetflow/internal/app"
	"github.com/dmitrymomot/assetflow/internal/config"
	"github.com/dmitrymomot/assetflow/internal/server"
	"github.com/dmitrymomot/assetflow/middlewares"
	"github.com/dmitrymomot/assetflow/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Error("load configuration", "error", err)
		return 1
	}

	log := logger.New(cfg.Log,
		middlewares.RequestIDExtractor(),
		logger.ValueExtractor("category"),
		logger.ValueExtractor("task"),
	)
	defer logger.Flush(2 * time.Second)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("initialize application", "error", err)
		return 1
	}

	srv := server.New(cfg.Server, a.Handler, a.ServerOptions()...)
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		return 1
	}
	return 0
}
