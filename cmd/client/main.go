package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lzhahn/CountMe-sub003/internal/client"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Fprintln(os.Stderr, buildInfo)

	cfg, err := config.GetClientConfig()
	if err != nil {
		logger.NewLogger("countme-client").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewClientLogger("countme-client", cfg.LogFilePath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := client.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}

	if err = app.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("client run error")
	}
}
