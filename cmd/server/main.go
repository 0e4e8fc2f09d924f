package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lzhahn/CountMe-sub003/internal/config"
	myHTTP "github.com/lzhahn/CountMe-sub003/internal/handler/http"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/server"
	"github.com/lzhahn/CountMe-sub003/internal/service"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

// Usage:
//
//	countme-server [flags]                       serve the document API
//	countme-server [flags] issue-token <owner>   print a bearer token for owner
func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Fprintln(os.Stderr, buildInfo)

	log := logger.NewLogger("countme-server")
	cfg, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	if cfg.App.Version == "" {
		cfg.App.Version = buildInfo.Version
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	storages, err := store.NewStorages(ctx, cfg.DSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer storages.Close()

	services, err := service.NewServices(storages, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	if args := flag.Args(); len(args) > 0 {
		if args[0] != "issue-token" || len(args) != 2 {
			log.Fatal().Strs("args", args).Msg("usage: issue-token <owner>")
		}
		token, err := services.AuthService.CreateToken(ctx, args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("error issuing token")
		}
		fmt.Println(token.SignedString)
		return
	}

	srv, err := server.NewServer(myHTTP.NewHandler(services, log).Init(), cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	if err = srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server shut down gracefully")
}
