// Command crew serves the research crew: POST /agents with {"task": "..."}.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/agentcrew/internal/app"
	"github.com/hyperifyio/agentcrew/internal/server"
)

const defaultListenAddr = ":8000"

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var flags app.Flags
	flags.Register(flag.CommandLine)
	flag.Parse()

	if err := app.LoadEnvFiles(flags.EnvFile); err != nil {
		log.Fatal().Err(err).Str("file", flags.EnvFile).Msg("load env file")
	}
	cfg, err := app.ResolveConfig(flags.Finish(), flags.ConfigPath, defaultListenAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	r := server.NewCrewEngine(a.CrewHandler(), a.ServerOptions())
	return server.Serve(ctx, cfg.ListenAddr, r, 10*time.Second)
}
