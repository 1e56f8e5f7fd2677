package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

// MultiSource reads the trust config from the first source that has it.
// Sources are tried in order, so list the preferred one first.
type MultiSource struct {
	sources []interfaces.TrustSource
	log     *slog.Logger
}

// NewMultiSource creates a multi-source with fallback.
func NewMultiSource(sources []interfaces.TrustSource, logger *slog.Logger) *MultiSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiSource{
		sources: sources,
		log:     logger,
	}
}

func (m *MultiSource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, source := range m.sources {
		if !source.Available(ctx) {
			m.log.Debug("Trust source unavailable", slog.String("source", source.Name()))
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		data, err := source.Fetch(ctx)
		if err == nil {
			m.log.Info("Fetched trust config",
				slog.String("source", source.Name()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		m.log.Debug("Failed to fetch from trust source",
			slog.String("source", source.Name()),
			"err", err)
	}

	m.log.Error("All trust sources failed",
		slog.Int("failed_sources", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all trust sources failed: %w", errors.Join(errs...))
}

// Store writes to every available source and succeeds if at least one write
// does. The URI of the first successful write is returned.
func (m *MultiSource) Store(ctx context.Context, data []byte) (string, error) {
	var (
		first string
		errs  []error
	)

	for _, source := range m.sources {
		if !source.Available(ctx) {
			m.log.Debug("Trust source unavailable", slog.String("source", source.Name()))
			continue
		}

		uri, err := source.Store(ctx, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
			m.log.Warn("Failed to store to trust source", slog.String("source", source.Name()), "err", err)
			continue
		}
		if first == "" {
			first = uri
		}
	}

	if first == "" {
		if len(errs) == 0 {
			return "", interfaces.ErrBackendUnavailable
		}
		return "", fmt.Errorf("all trust sources failed to store: %w", errors.Join(errs...))
	}
	return first, nil
}

// Available reports whether any source is available.
func (m *MultiSource) Available(ctx context.Context) bool {
	for _, source := range m.sources {
		if source.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiSource) Name() string {
	return fmt.Sprintf("multi-%d", len(m.sources))
}

func (m *MultiSource) LocationURI() string {
	return "multi:"
}
