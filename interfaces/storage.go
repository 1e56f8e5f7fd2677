package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// TrustSourceLocation is a parsed trust source URI.
type TrustSourceLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewTrustSourceLocation parses and validates a trust source URI.
func NewTrustSourceLocation(uri string) (TrustSourceLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return TrustSourceLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3", "ipfs", "vault", "github":
	default:
		return TrustSourceLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return TrustSourceLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc TrustSourceLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc TrustSourceLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc TrustSourceLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrContentNotFound is returned when the trust material does not exist at the source.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a source is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("trust source unavailable")

	// ErrInvalidLocationURI is returned when a source URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid trust source location URI")
)

// TrustSource provides the serialized trust config of one party.
// The config is read once at startup; sources are not watched for changes.
type TrustSource interface {
	// Fetch retrieves the serialized trust config.
	Fetch(ctx context.Context) ([]byte, error)

	// Store writes a serialized trust config and returns the URI it can be
	// fetched from. For content-addressed sources this differs from LocationURI.
	Store(ctx context.Context, data []byte) (string, error)

	// Available checks if the source is accessible.
	Available(ctx context.Context) bool

	// Name returns a short identifier used in logs.
	Name() string

	// LocationURI returns the URI this source was created from.
	LocationURI() string
}
