package flags

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/ruteri/spe-sentiment-envelope/common"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/httpserver"
	"github.com/ruteri/spe-sentiment-envelope/storage"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadEnvFile loads KEY=VALUE pairs from the --env-file path, if set, without
// overriding variables already present in the environment. It must run before
// flags with EnvVars are read, so it is used as the app's Before hook.
func LoadEnvFile(cCtx *cli.Context) error {
	path := cCtx.String(EnvFileFlag.Name)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("could not load env file %s: %w", path, err)
	}
	// Re-apply env-backed flags that were not set on the command line.
	for _, f := range cCtx.App.Flags {
		if cCtx.IsSet(f.Names()[0]) {
			continue
		}
		if ef, ok := f.(interface{ GetEnvVars() []string }); ok {
			for _, env := range ef.GetEnvVars() {
				if v, found := os.LookupEnv(env); found {
					if err := cCtx.Set(f.Names()[0], v); err != nil {
						return err
					}
					break
				}
			}
		}
	}
	return nil
}

// LoadTrust fetches the trust config from the --trust-config locations and
// applies the --private-key override.
func LoadTrust(cCtx *cli.Context, logger *slog.Logger) (*cryptoutils.TrustConfig, error) {
	uris := cCtx.StringSlice(TrustConfigFlag.Name)
	if len(uris) == 0 {
		return nil, fmt.Errorf("--%s is required", TrustConfigFlag.Name)
	}

	source, err := storage.NewSourceFactory(logger).CreateMultiSource(uris)
	if err != nil {
		return nil, fmt.Errorf("invalid trust config location: %w", err)
	}

	cfg, err := storage.LoadTrustConfig(cCtx.Context, source,
		cryptoutils.WithPrivateKey(cCtx.String(PrivateKeyFlag.Name)))
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded trust config", "source", source.Name(), "issuer", cfg.Issuer, "namespace", cfg.HeaderNamespace)
	return cfg, nil
}

var TrustConfigFlag = &cli.StringSliceFlag{
	Name:    "trust-config",
	EnvVars: []string{"SPE_TRUST_CONFIG"},
	Usage:   "trust config location(s), tried in order: file://, s3://, vault:// or ipfs:// URI, or a plain path",
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	EnvVars: []string{"SPE_PRIVATE_KEY"},
	Usage:   "base64url Ed25519 seed overriding the credential privkey in the trust config",
}

var EnvFileFlag = &cli.StringFlag{
	Name:  "env-file",
	Usage: "load environment variables from this file before reading flags",
}

var APITokenFlag = &cli.StringFlag{
	Name:    "api-token",
	EnvVars: []string{"SPE_API_TOKEN"},
	Usage:   "shared X-API-Token value; empty disables the token gate",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	EnvFileFlag,
}

var ServerFlags = []cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
