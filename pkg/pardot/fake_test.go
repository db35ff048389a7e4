package pardot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	httpclient "github.com/natserract/pardot/pkg/http"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testEmail    = "a@b.com"
	testPassword = "pw"
	testUserKey  = "uk"
)

// fakePardot imitates the legacy login object and the API objects. Each
// successful login hands out a new api key and only the latest key is
// accepted.
type fakePardot struct {
	server *httptest.Server

	mu        sync.Mutex
	logins    int
	apiCalls  int
	validKey  string
	failLogin bool
	rejectAll bool
	requests  []recordedRequest
	respond   func(w http.ResponseWriter, r *http.Request, form url.Values)
}

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
}

func newFakePardot(t *testing.T) *fakePardot {
	t.Helper()
	f := &fakePardot{
		respond: func(w http.ResponseWriter, r *http.Request, form url.Values) {
			writeJSON(w, http.StatusOK, map[string]any{"@attributes": map[string]any{"stat": "ok"}})
		},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePardot) serveHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := r.PostForm
	if r.URL.Path == "/api/login/version/4" {
		f.handleLogin(w, r, form)
		return
	}

	f.mu.Lock()
	f.apiCalls++
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Form:   form,
		Header: r.Header.Clone(),
	})
	expected := fmt.Sprintf("Pardot api_key=%s, user_key=%s", f.validKey, testUserKey)
	valid := !f.rejectAll && f.validKey != "" && r.Header.Get("Authorization") == expected
	respond := f.respond
	f.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusBadRequest, pardotError(1, legacyExpiredMessage))
		return
	}
	respond(w, r, form)
}

func (f *fakePardot) handleLogin(w http.ResponseWriter, r *http.Request, form url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++

	if r.Header.Get("Authorization") != "" {
		writeJSON(w, http.StatusBadRequest, pardotError(99, "login must not carry credentials header"))
		return
	}
	if f.failLogin || form.Get("email") != testEmail || form.Get("password") != testPassword || form.Get("user_key") != testUserKey {
		writeJSON(w, http.StatusBadRequest, pardotError(15, "Login failed"))
		return
	}
	f.validKey = fmt.Sprintf("key-%d", f.logins)
	writeJSON(w, http.StatusOK, map[string]any{
		"@attributes": map[string]any{"stat": "ok", "version": 1},
		"api_key":     f.validKey,
	})
}

// expire invalidates the current key on the server side.
func (f *fakePardot) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validKey = "server-rotated"
}

func (f *fakePardot) set(fn func(f *fakePardot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakePardot) counts() (logins, apiCalls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.apiCalls
}

func (f *fakePardot) lastRequest() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return recordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakePardot) legacyAuth(t *testing.T, creds LegacyCredentials) *LegacyAuth {
	t.Helper()
	logger := zaptest.NewLogger(t)
	auth, err := NewLegacyAuth(creds, f.server.URL+"/api/login/version/4", httpclient.NewClientWithLogger(logger), logger)
	require.NoError(t, err)
	return auth
}

func (f *fakePardot) session(t *testing.T) *Session {
	t.Helper()
	logger := zaptest.NewLogger(t)
	auth := f.legacyAuth(t, LegacyCredentials{Email: testEmail, Password: testPassword, UserKey: testUserKey})
	return NewSession(f.server.URL, 4, auth, httpclient.NewClientWithLogger(logger), logger)
}

func (f *fakePardot) client(t *testing.T) *Client {
	t.Helper()
	return NewClient(f.session(t), zaptest.NewLogger(t))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func pardotError(code int, msg string) map[string]any {
	return map[string]any{
		"@attributes": map[string]any{"stat": "fail", "version": 1, "err_code": code},
		"err":         msg,
	}
}

// queryResult wraps records in the shape of a /do/query response.
func queryResult(key string, total int, records any) map[string]any {
	result := map[string]any{"total_results": total}
	if records != nil {
		result[key] = records
	}
	return map[string]any{
		"@attributes": map[string]any{"stat": "ok", "version": 1},
		"result":      result,
	}
}

func lastSegment(path string) string {
	parts := strings.Split(strings.TrimRight(path, "/"), "/")
	return parts[len(parts)-1]
}
