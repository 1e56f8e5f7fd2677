package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/api"
	"github.com/ruteri/spe-sentiment-envelope/api/pkihandler"
	"github.com/ruteri/spe-sentiment-envelope/api/sentiment"
	"github.com/ruteri/spe-sentiment-envelope/cmd/flags"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/envelope"
	"github.com/urfave/cli/v2"
)

var flagAPIURL = &cli.StringFlag{
	Name:    "api-url",
	Value:   "http://127.0.0.1:8080",
	EnvVars: []string{"SPE_SENTIMENT_API_URL"},
	Usage:   "sentiment API base URL or full /analyze URL",
}

var flagTimeout = &cli.DurationFlag{
	Name:  "timeout",
	Value: 60 * time.Second,
	Usage: "HTTP timeout for analysis requests",
}

var flagItems = &cli.StringFlag{
	Name:  "items",
	Value: "-",
	Usage: "JSON file with an items array or an {\"items\": [...]} object; - reads stdin",
}

func newClient(cCtx *cli.Context) (*sentiment.Client, *cryptoutils.TrustConfig, error) {
	logger := flags.SetupLogger(cCtx)

	trustCfg, err := flags.LoadTrust(cCtx, logger)
	if err != nil {
		return nil, nil, err
	}
	builder, err := envelope.NewBuilder(trustCfg, envelope.RoleClient, time.Now)
	if err != nil {
		return nil, nil, fmt.Errorf("client credential rejected: %w", err)
	}
	validator, err := envelope.NewValidator(trustCfg, envelope.RoleServer, time.Now)
	if err != nil {
		return nil, nil, err
	}

	client := sentiment.NewClient(cCtx.String(flagAPIURL.Name), builder, validator, logger,
		sentiment.WithToken(cCtx.String(flags.APITokenFlag.Name)),
		sentiment.WithHTTPClient(&http.Client{Timeout: cCtx.Duration(flagTimeout.Name)}),
	)
	return client, trustCfg, nil
}

// readItems accepts either a bare JSON array of items or an analyze request
// object.
func readItems(path string) ([]api.Item, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var items []api.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var req api.AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("could not parse items: %w", err)
	}
	return req.Items, nil
}

func main() {
	appFlags := []cli.Flag{
		flagAPIURL,
		flagTimeout,
		flags.TrustConfigFlag,
		flags.PrivateKeyFlag,
		flags.APITokenFlag,
		flags.LogServiceFlagFn("sentiment-client"),
	}
	appFlags = append(appFlags, flags.CommonFlags...)

	app := &cli.App{
		Name:           "sentiment-client",
		Usage:          "Call the sentiment API with a client envelope",
		Flags:          appFlags,
		Before:         flags.LoadEnvFile,
		DefaultCommand: "probe",
		Commands: []*cli.Command{
			{
				Name:  "probe",
				Usage: "Check that the API is reachable and provisioned from the same trust root",
				Action: func(cCtx *cli.Context) error {
					client, trustCfg, err := newClient(cCtx)
					if err != nil {
						return err
					}
					if err := client.Probe(cCtx.Context); err != nil {
						return err
					}
					fmt.Println("reachable:", client.Endpoint())

					info, err := pkihandler.FetchTrustInfo(cCtx.Context, client.BaseURL())
					if err != nil {
						return err
					}
					if err := pkihandler.CheckAlignment(info, trustCfg, time.Now()); err != nil {
						return err
					}
					fmt.Println("trust aligned: server certificate expires", time.Unix(info.Expires, 0).UTC().Format(time.RFC3339))
					return nil
				},
			},
			{
				Name:  "analyze",
				Usage: "Send a batch of comments and print the verified results",
				Flags: []cli.Flag{flagItems},
				Action: func(cCtx *cli.Context) error {
					items, err := readItems(cCtx.String(flagItems.Name))
					if err != nil {
						return err
					}
					client, _, err := newClient(cCtx)
					if err != nil {
						return err
					}

					results, err := client.Analyze(cCtx.Context, items)
					if err != nil {
						return err
					}

					out, err := json.MarshalIndent(results, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
