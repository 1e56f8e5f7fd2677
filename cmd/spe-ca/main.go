package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cmd/flags"
	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/envelope"
	"github.com/ruteri/spe-sentiment-envelope/storage"
	"github.com/urfave/cli/v2"
)

// rootKeyFile is the on-disk form of the trust root. It is never shipped to
// the parties; only root_pubkey is.
type rootKeyFile struct {
	Issuer    string `json:"issuer"`
	RootPub   string `json:"root_pubkey"`
	RootSeed  string `json:"root_seed"`
	CreatedAt int64  `json:"created_at"`
}

var flagRootKey = &cli.StringFlag{
	Name:  "root-key",
	Value: "spe-root.json",
	Usage: "path to the root key file",
}

var flagIssuer = &cli.StringFlag{
	Name:  "issuer",
	Value: cryptoutils.DefaultIssuer,
	Usage: "issuer name placed in the root and in issued identities",
}

var flagSubject = &cli.StringFlag{
	Name:     "subject",
	Required: true,
	Usage:    "identity subject, e.g. spe-plugin or spe-api",
}

var flagDays = &cli.IntFlag{
	Name:  "days",
	Value: 365,
	Usage: "validity of the issued identity in days",
}

var flagNamespace = &cli.StringFlag{
	Name:  "header-namespace",
	Value: cryptoutils.DefaultHeaderNamespace,
	Usage: "header namespace written into the trust config",
}

var flagOut = &cli.StringFlag{
	Name:  "out",
	Usage: "write the full trust config, including the private key, to this path",
}

var flagPublicOut = &cli.StringFlag{
	Name:  "public-out",
	Usage: "write the trust config without the private key to this path",
}

var flagRole = &cli.StringFlag{
	Name:  "role",
	Value: "auto",
	Usage: "role to verify the credential for: client, server or auto",
}

var flagPublishTo = &cli.StringFlag{
	Name:     "to",
	Required: true,
	Usage:    "trust source URI to publish to (file://, s3://, vault:// or ipfs://)",
}

var flagPublishFile = &cli.StringFlag{
	Name:     "file",
	Required: true,
	Usage:    "trust config file to publish",
}

var flagPublishPrivate = &cli.BoolFlag{
	Name:  "include-private-key",
	Usage: "publish the private key too; never use with ipfs://",
}

func generateRoot(issuer string, now time.Time) (*rootKeyFile, error) {
	seed, pub, err := cryptoutils.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	return &rootKeyFile{
		Issuer:    issuer,
		RootPub:   cryptoutils.Base64URLEncode(pub),
		RootSeed:  seed,
		CreatedAt: now.Unix(),
	}, nil
}

func loadRoot(path string) (*rootKeyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root rootKeyFile
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("could not parse root key file: %w", err)
	}
	return &root, nil
}

// issue creates a fresh subject key and a trust config holding its identity
// signed by root.
func issue(root *rootKeyFile, subject, namespace string, validFor time.Duration, now time.Time) (*cryptoutils.TrustConfig, error) {
	rootSeed, err := cryptoutils.Base64URLDecode(root.RootSeed)
	if err != nil {
		return nil, fmt.Errorf("root_seed: %w", err)
	}
	rootPub, err := cryptoutils.Base64URLDecode(root.RootPub)
	if err != nil {
		return nil, fmt.Errorf("root_pubkey: %w", err)
	}
	signer, err := cryptoutils.NewSigner(root.RootSeed, rootPub)
	if err != nil {
		return nil, err
	}
	if !signer.MatchesPublicKey() {
		return nil, errors.New("root key file is inconsistent: seed does not derive root_pubkey")
	}

	seed, pub, err := cryptoutils.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	cert, certSig, err := cryptoutils.IssueIdentity(subject, root.Issuer, pub, now.Add(validFor), rootSeed, rootPub)
	if err != nil {
		return nil, err
	}

	cfg := &cryptoutils.TrustConfig{
		Issuer:          root.Issuer,
		RootPublicKey:   root.RootPub,
		HeaderNamespace: namespace,
		Credential: cryptoutils.Credential{
			Certificate:          cert,
			CertificateSignature: certSig,
			PrivateKey:           seed,
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// verify checks that cfg's credential would be accepted by a peer, for role,
// or for whichever role its subject matches when role is "auto".
func verify(cfg *cryptoutils.TrustConfig, role string, now time.Time) (envelope.Role, *cryptoutils.Identity, error) {
	var r envelope.Role
	switch strings.ToLower(role) {
	case "client":
		r = envelope.RoleClient
	case "server":
		r = envelope.RoleServer
	case "auto", "":
		id, err := cryptoutils.ParseIdentity([]byte(cfg.Credential.Certificate))
		if err != nil {
			return "", nil, err
		}
		r = envelope.RoleClient
		if id.SubjectID == cfg.ServerSubject {
			r = envelope.RoleServer
		}
	default:
		return "", nil, fmt.Errorf("unknown role %q", role)
	}

	b, err := envelope.NewBuilder(cfg, r, func() time.Time { return now })
	if err != nil {
		return r, nil, err
	}
	return r, b.Identity(), nil
}

func writeConfig(cfg *cryptoutils.TrustConfig, path string, public bool) error {
	var data []byte
	var err error
	if public {
		data, err = cfg.MarshalPublic()
	} else {
		data, err = cfg.Marshal()
	}
	if err != nil {
		return err
	}
	mode := os.FileMode(0o600)
	if public {
		mode = 0o644
	}
	return os.WriteFile(path, data, mode)
}

func main() {
	app := &cli.App{
		Name:     "spe-ca",
		Usage:    "Provision the trust root and party credentials for the sentiment envelope",
		Flags:    append([]cli.Flag{flags.LogServiceFlagFn("spe-ca")}, flags.CommonFlags...),
		Before:   flags.LoadEnvFile,
		Commands: []*cli.Command{
			{
				Name:  "generate-ca",
				Usage: "Create a new trust root key file",
				Flags: []cli.Flag{flagRootKey, flagIssuer},
				Action: func(cCtx *cli.Context) error {
					path := cCtx.String(flagRootKey.Name)
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists, refusing to overwrite", path)
					}
					root, err := generateRoot(cCtx.String(flagIssuer.Name), time.Now())
					if err != nil {
						return err
					}
					data, err := json.MarshalIndent(root, "", "  ")
					if err != nil {
						return err
					}
					if err := os.WriteFile(path, data, 0o600); err != nil {
						return err
					}
					fmt.Println("root_pubkey:", root.RootPub)
					return nil
				},
			},
			{
				Name:  "issue",
				Usage: "Issue a credential and write a trust config for one party",
				Flags: []cli.Flag{flagRootKey, flagSubject, flagDays, flagNamespace, flagOut, flagPublicOut},
				Action: func(cCtx *cli.Context) error {
					root, err := loadRoot(cCtx.String(flagRootKey.Name))
					if err != nil {
						return err
					}
					validFor := time.Duration(cCtx.Int(flagDays.Name)) * 24 * time.Hour
					cfg, err := issue(root, cCtx.String(flagSubject.Name), cCtx.String(flagNamespace.Name), validFor, time.Now())
					if err != nil {
						return err
					}

					if out := cCtx.String(flagOut.Name); out != "" {
						if err := writeConfig(cfg, out, false); err != nil {
							return err
						}
					}
					if out := cCtx.String(flagPublicOut.Name); out != "" {
						if err := writeConfig(cfg, out, true); err != nil {
							return err
						}
						// The seed is only printed when the full config is not written.
						if cCtx.String(flagOut.Name) == "" {
							fmt.Println("SPE_PRIVATE_KEY=" + cfg.Credential.PrivateKey)
						}
					}
					if cCtx.String(flagOut.Name) == "" && cCtx.String(flagPublicOut.Name) == "" {
						data, err := cfg.Marshal()
						if err != nil {
							return err
						}
						fmt.Println(string(data))
					}
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Check that a trust config's credential is valid now",
				Flags: []cli.Flag{flags.TrustConfigFlag, flags.PrivateKeyFlag, flagRole},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					cfg, err := flags.LoadTrust(cCtx, logger)
					if err != nil {
						return err
					}
					role, id, err := verify(cfg, cCtx.String(flagRole.Name), time.Now())
					if err != nil {
						return fmt.Errorf("credential rejected as %s: %w", role, err)
					}
					fmt.Printf("ok: %s credential for %q issued by %q, expires %s\n",
						role, id.SubjectID, id.Issuer, id.ExpiresAt().UTC().Format(time.RFC3339))
					return nil
				},
			},
			{
				Name:  "publish",
				Usage: "Upload a trust config to a trust source",
				Flags: []cli.Flag{flagPublishFile, flagPublishTo, flagPublishPrivate},
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					data, err := os.ReadFile(cCtx.String(flagPublishFile.Name))
					if err != nil {
						return err
					}
					var opts []cryptoutils.TrustOption
					if !cCtx.Bool(flagPublishPrivate.Name) {
						// Public configs carry no seed; a placeholder satisfies validation.
						opts = append(opts, cryptoutils.WithPrivateKey("-"))
					}
					cfg, err := cryptoutils.ParseTrustConfig(data, opts...)
					if err != nil {
						return err
					}
					if cCtx.Bool(flagPublishPrivate.Name) {
						data, err = cfg.Marshal()
					} else {
						data, err = cfg.MarshalPublic()
					}
					if err != nil {
						return err
					}

					source, err := storage.NewSourceFactory(logger).SourceFor(cCtx.String(flagPublishTo.Name))
					if err != nil {
						return err
					}
					uri, err := source.Store(cCtx.Context, data)
					if err != nil {
						return err
					}
					fmt.Println("published:", uri)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
