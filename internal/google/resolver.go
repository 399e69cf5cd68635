package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/agenda/internal/logging"
)

// ErrCredentialsUnavailable means no source produced credentials.
var ErrCredentialsUnavailable = errors.New("google credentials unavailable")

// Credentials is the outcome of a successful resolution.
type Credentials struct {
	// Source names the source that produced the token source.
	Source      string
	TokenSource oauth2.TokenSource
}

// Options selects the paths of the file sources.
type Options struct {
	SecretFile      string
	CredentialsFile string
	Getenv          func(string) string
}

// DefaultSources returns the standard precedence chain: runtime secret
// mount, then environment, then the local credentials file.
func DefaultSources(opts Options) []Source {
	return []Source{
		SecretFile(opts.SecretFile),
		Environment(opts.Getenv),
		CredentialsFile(opts.CredentialsFile),
	}
}

// Resolve walks sources in order and returns the first that yields a token
// source. Sources that fail are skipped; their errors are joined into the
// ErrCredentialsUnavailable returned when nothing resolves.
func Resolve(ctx context.Context, logger *slog.Logger, sources ...Source) (Credentials, error) {
	logger = logging.WithComponent(logger, "credentials")

	var failures []error
	for _, src := range sources {
		ts, err := src.TokenSource(ctx, DefaultOAuthScopes)
		switch {
		case errors.Is(err, ErrNotConfigured):
			continue
		case err != nil:
			logger.Warn("credential source failed",
				slog.String("source", src.Name()),
				logging.Err(err))
			failures = append(failures, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		logger.Info("resolved google credentials", slog.String("source", src.Name()))
		return Credentials{Source: src.Name(), TokenSource: ts}, nil
	}

	return Credentials{}, errors.Join(append([]error{ErrCredentialsUnavailable}, failures...)...)
}
