package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Environment variables read by the environment sources.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRefreshToken = "GOOGLE_REFRESH_TOKEN"
	EnvCredentials  = "GOOGLE_CREDENTIALS"
)

// ErrNotConfigured is returned by a Source that has nothing to offer. The
// resolver moves on to the next source.
var ErrNotConfigured = errors.New("credential source not configured")

// Source yields a token source or ErrNotConfigured.
type Source interface {
	Name() string
	TokenSource(ctx context.Context, scopes []string) (oauth2.TokenSource, error)
}

// fileSource reads a credential document from disk.
type fileSource struct {
	name string
	path string
}

// SecretFile is a credential document mounted by a runtime secret store.
func SecretFile(path string) Source {
	return fileSource{name: "secret-file", path: path}
}

// CredentialsFile is a credential document on the local filesystem.
func CredentialsFile(path string) Source {
	return fileSource{name: "credentials-file", path: path}
}

func (f fileSource) Name() string { return f.name }

func (f fileSource) TokenSource(ctx context.Context, scopes []string) (oauth2.TokenSource, error) {
	if f.path == "" {
		return nil, ErrNotConfigured
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return fromJSON(ctx, data, scopes)
}

// envSource reads credentials from environment variables.
type envSource struct {
	getenv func(string) string
}

// Environment reads either the refresh-token triple (GOOGLE_CLIENT_ID,
// GOOGLE_CLIENT_SECRET, GOOGLE_REFRESH_TOKEN) or a JSON document in
// GOOGLE_CREDENTIALS. A nil getenv means os.Getenv.
func Environment(getenv func(string) string) Source {
	if getenv == nil {
		getenv = os.Getenv
	}
	return envSource{getenv: getenv}
}

func (e envSource) Name() string { return "environment" }

func (e envSource) TokenSource(ctx context.Context, scopes []string) (oauth2.TokenSource, error) {
	id, secret, refresh := e.getenv(EnvClientID), e.getenv(EnvClientSecret), e.getenv(EnvRefreshToken)
	if id != "" && secret != "" && refresh != "" {
		return refreshTokenSource(ctx, id, secret, refresh, scopes), nil
	}
	if doc := strings.TrimSpace(e.getenv(EnvCredentials)); doc != "" {
		return fromJSON(ctx, []byte(doc), scopes)
	}
	return nil, ErrNotConfigured
}

// credentialDocument covers the fields of both accepted document types.
type credentialDocument struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

func fromJSON(ctx context.Context, data []byte, scopes []string) (oauth2.TokenSource, error) {
	var doc credentialDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse credential document: %w", err)
	}

	switch doc.Type {
	case "service_account":
		cfg, err := google.JWTConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse service account key: %w", err)
		}
		return cfg.TokenSource(ctx), nil
	case "authorized_user":
		if doc.ClientID == "" || doc.ClientSecret == "" || doc.RefreshToken == "" {
			return nil, fmt.Errorf("authorized_user document needs client_id, client_secret and refresh_token")
		}
		return refreshTokenSource(ctx, doc.ClientID, doc.ClientSecret, doc.RefreshToken, scopes), nil
	default:
		return nil, fmt.Errorf("unsupported credential type %q", doc.Type)
	}
}

func refreshTokenSource(ctx context.Context, clientID, clientSecret, refreshToken string, scopes []string) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
}
