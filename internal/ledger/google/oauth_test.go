package google

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fakeTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "the-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/auth", TokenURL: tokenURL},
		Scopes:       []string{"sheets"},
	}
}

// callback plays the browser: it follows the consent URL's redirect with
// the given code, echoing state unless overridden.
func callback(t *testing.T, code, state string) func(string) {
	return func(consent string) {
		u, err := url.Parse(consent)
		require.NoError(t, err)
		q := u.Query()
		if state == "" {
			state = q.Get("state")
		}
		redirect := q.Get("redirect_uri") + "?" + url.Values{"code": {code}, "state": {state}}.Encode()
		go func() {
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestAuthorize(t *testing.T) {
	ts := fakeTokenServer(t)

	tok, err := Authorize(context.Background(), oauthConfig(ts.URL), listen(t), callback(t, "the-code", ""))
	require.NoError(t, err)
	assert.Equal(t, "access", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
}

func TestAuthorize_StateMismatch(t *testing.T) {
	ts := fakeTokenServer(t)

	_, err := Authorize(context.Background(), oauthConfig(ts.URL), listen(t), callback(t, "the-code", "forged"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
}

func TestAuthorize_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, err := Authorize(ctx, oauthConfig("http://127.0.0.1:1"), listen(t), func(string) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Setenv(EnvOAuthTokenJSON, "")
	t.Setenv(EnvOAuthTokenFile, path)
	tok, err := tokenFromEnv()
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "r", tok.RefreshToken)

	t.Setenv(EnvOAuthTokenFile, "")
	tok, err = tokenFromEnv()
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestOAuthConfigFromEnv(t *testing.T) {
	t.Setenv(EnvOAuthClientFile, "")
	t.Setenv(EnvOAuthClientJSON, "")
	_, err := OAuthConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(EnvOAuthClientJSON, `{"installed":{"client_id":"id","client_secret":"s","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`)
	cfg, err := OAuthConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
}
