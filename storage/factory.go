package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/cryptoutils"
	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

// SourceFactory creates trust sources from URI strings.
type SourceFactory struct {
	log *slog.Logger
}

func NewSourceFactory(logger *slog.Logger) *SourceFactory {
	return &SourceFactory{log: logger}
}

// SourceFor creates a trust source from a location URI.
//
// Supported schemes:
//   - file:///absolute/path.json or file://./relative/path.json
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=us-east-1&endpoint=host&anonymous=true
//   - vault://host:port/mount/path?key=content&tls=false
//   - ipfs://host:port/<cid>
//   - github://owner/repo/path/to/config.json?ref=main
//
// A URI without a scheme is treated as a local file path.
func (sf *SourceFactory) SourceFor(uri string) (interfaces.TrustSource, error) {
	if !strings.Contains(uri, "://") {
		return NewFileSource(uri, sf.log), nil
	}

	loc, err := interfaces.NewTrustSourceLocation(uri)
	if err != nil {
		return nil, err
	}
	sf.log.Debug("Creating trust source", slog.String("scheme", loc.Scheme))

	switch loc.Scheme {
	case "file":
		return sf.createFileSource(loc)
	case "s3":
		return sf.createS3Source(loc)
	case "vault":
		return sf.createVaultSource(loc)
	case "ipfs":
		return sf.createIPFSSource(loc)
	case "github":
		return sf.createGitHubSource(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// CreateMultiSource creates a multi-source from several URIs. URIs that fail
// to parse are logged and skipped.
func (sf *SourceFactory) CreateMultiSource(uris []string) (interfaces.TrustSource, error) {
	sources := make([]interfaces.TrustSource, 0, len(uris))
	for _, uri := range uris {
		source, err := sf.SourceFor(uri)
		if err != nil {
			sf.log.Warn("Failed to create trust source", "err", err)
			continue
		}
		sources = append(sources, source)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid trust sources created")
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return NewMultiSource(sources, sf.log), nil
}

func (sf *SourceFactory) createFileSource(loc interfaces.TrustSourceLocation) (interfaces.TrustSource, error) {
	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in %s", interfaces.ErrInvalidLocationURI, loc)
	}
	return NewFileSource(path, sf.log), nil
}

func (sf *SourceFactory) createS3Source(loc interfaces.TrustSourceLocation) (interfaces.TrustSource, error) {
	cfg := S3Config{
		Bucket:    loc.Host,
		Key:       strings.TrimPrefix(loc.Path, "/"),
		Region:    loc.GetParam("region"),
		Endpoint:  loc.GetParam("endpoint"),
		Anonymous: loc.GetParamBool("anonymous"),
	}
	if loc.Auth != "" {
		// Embedded credentials are supported but the default credential
		// chain is preferred.
		parts := strings.SplitN(loc.Auth, ":", 2)
		cfg.AccessKey = parts[0]
		if len(parts) == 2 {
			cfg.SecretKey = parts[1]
		}
	}
	return NewS3Source(cfg, sf.log)
}

func (sf *SourceFactory) createVaultSource(loc interfaces.TrustSourceLocation) (interfaces.TrustSource, error) {
	scheme := "https"
	if v := loc.GetParam("tls"); v == "false" || v == "0" {
		scheme = "http"
	}

	parts := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	if loc.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: vault URI must be vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}

	address := fmt.Sprintf("%s://%s", scheme, loc.Host)
	return NewVaultSource(address, parts[0], parts[1], loc.GetParam("key"), "", sf.log)
}

func (sf *SourceFactory) createIPFSSource(loc interfaces.TrustSourceLocation) (interfaces.TrustSource, error) {
	host, port := loc.Host, "5001"
	if i := strings.LastIndex(loc.Host, ":"); i >= 0 {
		host, port = loc.Host[:i], loc.Host[i+1:]
	}
	if host == "" {
		return nil, fmt.Errorf("%w: ipfs URI requires a host", interfaces.ErrInvalidLocationURI)
	}

	timeout := 30 * time.Second
	if v := loc.GetParam("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout: %v", interfaces.ErrInvalidLocationURI, err)
		}
		timeout = d
	}
	return NewIPFSSource(host, port, strings.Trim(loc.Path, "/"), timeout, sf.log), nil
}

func (sf *SourceFactory) createGitHubSource(loc interfaces.TrustSourceLocation) (interfaces.TrustSource, error) {
	parts := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	if loc.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: github URI must be github://owner/repo/path", interfaces.ErrInvalidLocationURI)
	}
	return NewGitHubSource(loc.Host, parts[0], parts[1], loc.GetParam("ref"), "", sf.log), nil
}

// LoadTrustConfig fetches and validates a trust config from source.
func LoadTrustConfig(ctx context.Context, source interfaces.TrustSource, opts ...cryptoutils.TrustOption) (*cryptoutils.TrustConfig, error) {
	data, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trust config from %s: %w", source.Name(), err)
	}
	cfg, err := cryptoutils.ParseTrustConfig(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid trust config from %s: %w", source.Name(), err)
	}
	return cfg, nil
}
