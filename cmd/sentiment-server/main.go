package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/analysis"
	"github.com/ruteri/spe-sentiment-envelope/api/pkihandler"
	"github.com/ruteri/spe-sentiment-envelope/api/sentiment"
	"github.com/ruteri/spe-sentiment-envelope/cmd/flags"
	"github.com/ruteri/spe-sentiment-envelope/common"
	"github.com/ruteri/spe-sentiment-envelope/envelope"
	"github.com/ruteri/spe-sentiment-envelope/httpserver"
	"github.com/ruteri/spe-sentiment-envelope/metrics"
	"github.com/urfave/cli/v2"
)

var flagListenAddr = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	EnvVars: []string{"SPE_LISTEN_ADDR"},
	Usage:   "address to listen on for API",
}

func main() {
	appFlags := []cli.Flag{
		flagListenAddr,
		flags.TrustConfigFlag,
		flags.PrivateKeyFlag,
		flags.APITokenFlag,
		flags.LogServiceFlagFn("sentiment-server"),
	}
	appFlags = append(appFlags, flags.CommonFlags...)
	appFlags = append(appFlags, flags.ServerFlags...)

	app := &cli.App{
		Name:   "sentiment-server",
		Usage:  "Serve the authenticated sentiment analysis API",
		Flags:  appFlags,
		Before: flags.LoadEnvFile,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			trustCfg, err := flags.LoadTrust(cCtx, logger)
			if err != nil {
				logger.Error("Failed to load trust config", "err", err)
				return err
			}

			// The server credential must be usable before any request is accepted.
			builder, err := envelope.NewBuilder(trustCfg, envelope.RoleServer, time.Now)
			if err != nil {
				logger.Error("Server credential rejected", "err", err)
				return err
			}
			validator, err := envelope.NewValidator(trustCfg, envelope.RoleClient, time.Now)
			if err != nil {
				logger.Error("Failed to create envelope validator", "err", err)
				return err
			}
			logger.Info("Server credential loaded",
				"subject", builder.Identity().SubjectID,
				"expires", builder.Identity().ExpiresAt())

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flagListenAddr.Name))
			cfg.Metrics, err = metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			opts := []sentiment.HandlerOption{sentiment.WithMetrics(cfg.Metrics)}
			if token := cCtx.String(flags.APITokenFlag.Name); token != "" {
				opts = append(opts, sentiment.WithAPIToken(token))
			} else {
				logger.Warn("No API token configured, token gate disabled")
			}
			handler := sentiment.NewHandler(builder, validator, analysis.NewAnalyzer(nil), logger, opts...)

			pki, err := pkihandler.NewHandler(trustCfg, logger)
			if err != nil {
				logger.Error("Failed to prepare trust info", "err", err)
				return err
			}

			server, err := httpserver.New(cfg, handler, pki)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Drain()
			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
