package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

// IPFSSource reads a published trust config by CID through an IPFS node.
// Content on IPFS is public, so only configs without a private key belong
// here; the seed is supplied separately (see cryptoutils.WithPrivateKey).
type IPFSSource struct {
	shell       *shell.Shell
	host        string
	port        string
	cid         string
	log         *slog.Logger
	locationURI string
}

// NewIPFSSource creates an IPFS source. cid may be empty for a source that is
// only used to publish.
func NewIPFSSource(host, port, cid string, timeout time.Duration, log *slog.Logger) *IPFSSource {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiURL)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSSource{
		shell:       sh,
		host:        host,
		port:        port,
		cid:         cid,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/%s", apiURL, cid),
	}
}

// Fetch retrieves the content for the configured CID. Returns
// ErrBackendUnavailable if the IPFS node is not accessible.
func (s *IPFSSource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	if s.cid == "" {
		return nil, fmt.Errorf("%w: no CID in %s", interfaces.ErrInvalidLocationURI, s.locationURI)
	}

	if !s.shell.IsUp() {
		s.log.Warn("IPFS node unavailable",
			slog.String("host", s.host),
			slog.String("port", s.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := s.shell.Cat("/ipfs/" + s.cid)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no link named") {
			return nil, interfaces.ErrContentNotFound
		}
		s.log.Error("Failed to fetch data from IPFS",
			slog.String("cid", s.cid),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	s.log.Debug("Fetched trust config from IPFS",
		slog.String("cid", s.cid),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

// Store adds data to IPFS and returns the ipfs:// URI of the new CID.
func (s *IPFSSource) Store(ctx context.Context, data []byte) (string, error) {
	if !s.shell.IsUp() {
		return "", interfaces.ErrBackendUnavailable
	}

	cid, err := s.shell.Add(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	s.log.Debug("Published trust config to IPFS", slog.String("cid", cid))
	return fmt.Sprintf("ipfs://%s:%s/%s", s.host, s.port, cid), nil
}

func (s *IPFSSource) Available(ctx context.Context) bool {
	return s.shell.IsUp()
}

func (s *IPFSSource) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", s.host, s.port)
}

func (s *IPFSSource) LocationURI() string {
	return s.locationURI
}
