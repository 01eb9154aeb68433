package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// Environment variables for signing in as a Google user instead of a
// service account.
const (
	EnvOAuthClientJSON = "GOOGLE_OAUTH_CLIENT_JSON"
	EnvOAuthClientFile = "GOOGLE_OAUTH_CLIENT_FILE"
	EnvOAuthTokenJSON  = "GOOGLE_OAUTH_TOKEN_JSON"
	EnvOAuthTokenFile  = "GOOGLE_OAUTH_TOKEN_FILE"
)

const callbackPath = "/callback"

// OAuthConfigFromEnv builds the installed-app OAuth config from the client
// credentials in GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	raw := strings.TrimSpace(os.Getenv(EnvOAuthClientJSON))
	if raw == "" {
		path := strings.TrimSpace(os.Getenv(EnvOAuthClientFile))
		if path == "" {
			return nil, fmt.Errorf("set %s or %s", EnvOAuthClientJSON, EnvOAuthClientFile)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		raw = string(b)
	}
	cfg, err := googleoauth.ConfigFromJSON([]byte(raw), gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// Authorize runs the browser consent flow. It serves the redirect on ln,
// hands the consent URL to show and waits for the callback, ctx or five
// minutes, whichever comes first.
func Authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, show func(url string)) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	cfg.RedirectURL = "http://" + ln.Addr().String() + callbackPath

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := result{code: q.Get("code")}
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("authorization state mismatch")
		case res.code == "":
			res.err = errors.New("authorization code missing")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case done <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	show(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-timeout.C:
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SaveToken writes tok to path, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// tokenFromEnv loads the saved user token, or returns nil when none is
// configured.
func tokenFromEnv() (*oauth2.Token, error) {
	raw := strings.TrimSpace(os.Getenv(EnvOAuthTokenJSON))
	if raw == "" {
		path := strings.TrimSpace(os.Getenv(EnvOAuthTokenFile))
		if path == "" {
			return nil, nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read oauth token file: %w", err)
		}
		raw = string(b)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
