package pardot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	httpclient "github.com/natserract/pardot/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLegacyAuth_Login(t *testing.T) {
	f := newFakePardot(t)
	auth := f.legacyAuth(t, LegacyCredentials{Email: testEmail, Password: testPassword, UserKey: testUserKey})

	_, err := auth.AuthHeader()
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.False(t, auth.HasToken())

	require.True(t, auth.Login(context.Background()))
	assert.True(t, auth.HasToken())

	header, err := auth.AuthHeader()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Pardot api_key=key-1, user_key=uk"}, header)

	auth.Invalidate()
	assert.False(t, auth.HasToken())
	_, err = auth.AuthHeader()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLegacyAuth_LoginSendsAPIKeyResponse(t *testing.T) {
	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusOK, map[string]any{"api_key": "XYZ"})
	}))
	defer server.Close()

	logger := zaptest.NewLogger(t)
	auth, err := NewLegacyAuth(LegacyCredentials{Email: "a@b.com", Password: "pw", UserKey: "uk"},
		server.URL+"/api/login/version/4", httpclient.NewClientWithLogger(logger), logger)
	require.NoError(t, err)

	require.True(t, auth.Login(context.Background()))
	assert.Equal(t, "a@b.com", got.Get("email"))
	assert.Equal(t, "pw", got.Get("password"))
	assert.Equal(t, "uk", got.Get("user_key"))

	header, err := auth.AuthHeader()
	require.NoError(t, err)
	assert.Equal(t, "Pardot api_key=XYZ, user_key=uk", header["Authorization"])
}

func TestLegacyAuth_LoginFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, pardotError(15, "Login failed"))
			},
		},
		{
			name: "missing api key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"@attributes": map[string]any{"stat": "ok"}})
			},
		},
		{
			name: "no json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "non json error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte("{not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			logger := zaptest.NewLogger(t)
			auth, err := NewLegacyAuth(LegacyCredentials{Email: "a@b.com", Password: "pw", UserKey: "uk"},
				server.URL, httpclient.NewClientWithLogger(logger), logger)
			require.NoError(t, err)

			assert.False(t, auth.Login(context.Background()))
			assert.False(t, auth.HasToken())
		})
	}
}

func TestLegacyAuth_WrongPassword(t *testing.T) {
	f := newFakePardot(t)
	auth := f.legacyAuth(t, LegacyCredentials{Email: testEmail, Password: "wrong", UserKey: testUserKey})

	assert.False(t, auth.Login(context.Background()))
	assert.False(t, auth.HasToken())
}

func TestNewLegacyAuth_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tests := []struct {
		name    string
		creds   LegacyCredentials
		url     string
		wantErr string
	}{
		{name: "missing email", creds: LegacyCredentials{Password: "pw", UserKey: "uk"}, url: "http://x", wantErr: "email is required"},
		{name: "missing password", creds: LegacyCredentials{Email: "e", UserKey: "uk"}, url: "http://x", wantErr: "password is required"},
		{name: "missing user key", creds: LegacyCredentials{Email: "e", Password: "pw"}, url: "http://x", wantErr: "user key is required"},
		{name: "missing url", creds: LegacyCredentials{Email: "e", Password: "pw", UserKey: "uk"}, wantErr: "login URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLegacyAuth(tt.creds, tt.url, nil, logger)
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestLegacyAuth_TokenExpired(t *testing.T) {
	auth := &LegacyAuth{}
	assert.True(t, auth.TokenExpired(&APIError{Code: 1, Message: "Invalid API key or user key"}))
	assert.False(t, auth.TokenExpired(&APIError{Code: 1, Message: "access_token is invalid, unknown, or malformed"}))
	assert.False(t, auth.TokenExpired(&APIError{Code: 1, Message: "invalid api key or user key"}))
	assert.False(t, auth.TokenExpired(nil))
}

// fakeSalesforce serves the OAuth token and revoke endpoints.
type fakeSalesforce struct {
	server *httptest.Server

	mu      sync.Mutex
	forms   []url.Values
	revoked []string
	issued  int
	reject  bool
}

func newFakeSalesforce(t *testing.T) *fakeSalesforce {
	t.Helper()
	f := &fakeSalesforce{}
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		defer f.mu.Unlock()
		f.forms = append(f.forms, r.PostForm)
		if f.reject {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "authentication failure",
			})
			return
		}
		f.issued++
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": fmt.Sprintf("token-%d", f.issued),
			"token_type":   "Bearer",
			"instance_url": "https://example.my.salesforce.com",
		})
	})
	mux.HandleFunc("/services/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.mu.Lock()
		defer f.mu.Unlock()
		f.revoked = append(f.revoked, r.PostForm.Get("token"))
		w.WriteHeader(http.StatusOK)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSalesforce) tokenURL() string {
	return f.server.URL + "/services/oauth2/token"
}

func (f *fakeSalesforce) lastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forms) == 0 {
		return nil
	}
	return f.forms[len(f.forms)-1]
}

func (f *fakeSalesforce) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func testOAuthCredentials() OAuthCredentials {
	return OAuthCredentials{
		Username:       "user@example.com",
		Password:       "secret",
		SecurityToken:  "TOKEN",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		BusinessUnitID: "0Uv000000000001",
	}
}

func newTestOAuth(t *testing.T, f *fakeSalesforce, creds OAuthCredentials) *OAuthAuth {
	t.Helper()
	logger := zaptest.NewLogger(t)
	auth, err := NewOAuthAuth(creds, f.tokenURL(), httpclient.NewClientWithLogger(logger), logger)
	require.NoError(t, err)
	return auth
}

func TestOAuthAuth_PasswordGrant(t *testing.T) {
	f := newFakeSalesforce(t)
	auth := newTestOAuth(t, f, testOAuthCredentials())

	require.True(t, auth.Login(context.Background()))

	form := f.lastForm()
	assert.Equal(t, "password", form.Get("grant_type"))
	assert.Equal(t, "ck", form.Get("client_id"))
	assert.Equal(t, "cs", form.Get("client_secret"))
	assert.Equal(t, "user@example.com", form.Get("username"))
	assert.Equal(t, "secretTOKEN", form.Get("password"))

	header, err := auth.AuthHeader()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Authorization":           "Bearer token-1",
		"Pardot-Business-Unit-Id": "0Uv000000000001",
		"Content-Type":            "application/x-www-form-urlencoded",
	}, header)
}

func TestOAuthAuth_RefreshGrant(t *testing.T) {
	f := newFakeSalesforce(t)
	creds := testOAuthCredentials()
	creds.Username = ""
	creds.Password = ""
	creds.RefreshToken = "rt-1"
	auth := newTestOAuth(t, f, creds)

	require.True(t, auth.Login(context.Background()))

	form := f.lastForm()
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "rt-1", form.Get("refresh_token"))
	assert.True(t, auth.HasToken())
}

func TestOAuthAuth_Rejected(t *testing.T) {
	f := newFakeSalesforce(t)
	f.reject = true
	auth := newTestOAuth(t, f, testOAuthCredentials())

	assert.False(t, auth.Login(context.Background()))
	assert.False(t, auth.HasToken())
	_, err := auth.AuthHeader()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestOAuthAuth_Revoke(t *testing.T) {
	f := newFakeSalesforce(t)
	auth := newTestOAuth(t, f, testOAuthCredentials())

	// No token held, nothing to revoke.
	require.NoError(t, auth.Revoke(context.Background()))
	assert.Empty(t, f.revokedTokens())

	require.True(t, auth.Login(context.Background()))
	require.NoError(t, auth.Revoke(context.Background()))
	assert.Equal(t, []string{"token-1"}, f.revokedTokens())
	assert.False(t, auth.HasToken())
}

func TestOAuthAuth_TokenExpired(t *testing.T) {
	auth := &OAuthAuth{}
	assert.True(t, auth.TokenExpired(&APIError{Code: 184, Message: "access_token is invalid, unknown, or malformed"}))
	assert.False(t, auth.TokenExpired(&APIError{Code: 1, Message: "Invalid API key or user key"}))
}

func TestNewOAuthAuth_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tests := []struct {
		name    string
		mutate  func(c *OAuthCredentials)
		wantErr string
	}{
		{name: "missing consumer key", mutate: func(c *OAuthCredentials) { c.ConsumerKey = "" }, wantErr: "consumer key is required"},
		{name: "missing consumer secret", mutate: func(c *OAuthCredentials) { c.ConsumerSecret = "" }, wantErr: "consumer secret is required"},
		{name: "missing business unit", mutate: func(c *OAuthCredentials) { c.BusinessUnitID = "" }, wantErr: "business unit id is required"},
		{name: "missing password", mutate: func(c *OAuthCredentials) { c.Password = "" }, wantErr: "username and password are required without a refresh token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := testOAuthCredentials()
			tt.mutate(&creds)
			_, err := NewOAuthAuth(creds, "", nil, logger)
			require.EqualError(t, err, tt.wantErr)
		})
	}

	t.Run("refresh token without password", func(t *testing.T) {
		creds := testOAuthCredentials()
		creds.Password = ""
		creds.RefreshToken = "rt"
		auth, err := NewOAuthAuth(creds, "", nil, logger)
		require.NoError(t, err)
		assert.Equal(t, "https://login.salesforce.com/services/oauth2/token", auth.tokenURL)
	})
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t, "https://login.salesforce.com/services/oauth2/token", TokenURL(false))
	assert.Equal(t, "https://test.salesforce.com/services/oauth2/token", TokenURL(true))
}
