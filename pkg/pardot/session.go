package pardot

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	httpclient "github.com/natserract/pardot/pkg/http"
	"go.uber.org/zap"
)

const (
	DefaultBaseURI    = "https://pi.pardot.com"
	DefaultAPIVersion = 4

	loginObject = "login"

	// maxAuthRetries bounds how many times one logical call may re-login
	// and replay after a token expiry.
	maxAuthRetries = 1
)

// Request describes one logical API call. Params go in the query string for
// GET and in a form body otherwise, unless JSON or File is set.
type Request struct {
	Method  string
	Object  string
	Path    string
	Params  url.Values
	JSON    any
	File    *File
	Headers map[string]string
}

// File is uploaded as a multipart part alongside Params.
type File struct {
	Field   string
	Name    string
	Content []byte
}

// Session issues authenticated calls against the Pardot API and recovers
// from token expiry with one re-login and replay.
type Session struct {
	baseURI    string
	version    int
	auth       AuthStrategy
	httpClient *httpclient.Client
	logger     *zap.Logger

	// authMu serializes Login and Invalidate across concurrent callers.
	authMu sync.Mutex
}

// NewSession creates a session. An empty baseURI or zero version uses the
// production defaults.
func NewSession(baseURI string, version int, auth AuthStrategy, httpClient *httpclient.Client, logger *zap.Logger) *Session {
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}
	if version == 0 {
		version = DefaultAPIVersion
	}
	if httpClient == nil {
		httpClient = httpclient.NewClientWithLogger(logger)
	}
	return &Session{
		baseURI:    strings.TrimRight(baseURI, "/"),
		version:    version,
		auth:       auth,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Auth returns the active authentication strategy.
func (s *Session) Auth() AuthStrategy {
	return s.auth
}

// Login authenticates if no token is currently held.
func (s *Session) Login(ctx context.Context) error {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	if s.auth.HasToken() {
		return nil
	}
	if !s.auth.Login(ctx) {
		return ErrAuthentication
	}
	return nil
}

func (s *Session) Get(ctx context.Context, object, path string, params url.Values) (*Result, error) {
	return s.Do(ctx, Request{Method: http.MethodGet, Object: object, Path: path, Params: params})
}

func (s *Session) Post(ctx context.Context, object, path string, params url.Values) (*Result, error) {
	return s.Do(ctx, Request{Method: http.MethodPost, Object: object, Path: path, Params: params})
}

func (s *Session) Patch(ctx context.Context, object, path string, params url.Values) (*Result, error) {
	return s.Do(ctx, Request{Method: http.MethodPatch, Object: object, Path: path, Params: params})
}

// Do runs one logical call. When the response reports this scheme's token
// expiry message, the token is refreshed and the identical request is
// replayed once. Any other error is returned untouched.
func (s *Session) Do(ctx context.Context, req Request) (*Result, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Object == "" {
		return nil, fmt.Errorf("object is required")
	}

	logger := s.logger.With(
		zap.String("call_id", uuid.NewString()),
		zap.String("method", req.Method),
		zap.String("object", req.Object),
		zap.String("path", req.Path))

	if req.Object != loginObject {
		if err := s.Login(ctx); err != nil {
			logger.Error("Failed to authenticate", zap.Error(err))
			return nil, err
		}
	}

	for attempt := 0; ; attempt++ {
		var authHeader map[string]string
		if req.Object != loginObject {
			h, err := s.auth.AuthHeader()
			if err != nil {
				logger.Error("Failed to build auth header", zap.Error(err))
				return nil, err
			}
			authHeader = h
		}

		result, err := s.send(ctx, req, authHeader)
		if err == nil {
			logger.Debug("API call succeeded",
				zap.Int("status_code", result.StatusCode),
				zap.Int("attempt", attempt))
			return result, nil
		}

		var apiErr *APIError
		if req.Object == loginObject || !errors.As(err, &apiErr) || !s.auth.TokenExpired(apiErr) {
			logger.Debug("API call failed", zap.Error(err), zap.Int("attempt", attempt))
			return nil, err
		}
		if attempt >= maxAuthRetries {
			logger.Error("Token rejected again after re-authentication", zap.Error(apiErr))
			return nil, apiErr
		}

		logger.Warn("Session token expired, re-authenticating", zap.String("message", apiErr.Message))
		if !s.refresh(ctx, authHeader) {
			logger.Error("Re-authentication failed")
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, apiErr)
		}
	}
}

// refresh replaces the token that produced stale. When another caller has
// already replaced it, the current token is reused without a new login.
func (s *Session) refresh(ctx context.Context, stale map[string]string) bool {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if current, err := s.auth.AuthHeader(); err == nil && !maps.Equal(current, stale) {
		return true
	}
	s.auth.Invalidate()
	return s.auth.Login(ctx)
}

func (s *Session) send(ctx context.Context, req Request, authHeader map[string]string) (*Result, error) {
	query := url.Values{}
	if req.Method == http.MethodGet {
		for k, v := range req.Params {
			query[k] = v
		}
	}
	query.Set("format", "json")

	endpoint, err := httpclient.BuildURL(s.baseURI, s.objectPath(req.Object, req.Path), query)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	headers := make(map[string]string, len(authHeader)+len(req.Headers)+1)
	maps.Copy(headers, authHeader)
	maps.Copy(headers, req.Headers)

	var body interface{}
	if req.Method != http.MethodGet {
		switch {
		case req.File != nil:
			body = &httpclient.MultipartBody{
				Fields:    req.Params,
				FileField: req.File.Field,
				FileName:  req.File.Name,
				Content:   req.File.Content,
			}
			delete(headers, "Content-Type")
		case req.JSON != nil:
			body = req.JSON
			headers["Content-Type"] = "application/json"
		default:
			params := req.Params
			if params == nil {
				params = url.Values{}
			}
			body = params
			headers["Content-Type"] = "application/x-www-form-urlencoded"
		}
	}

	resp, err := s.httpClient.Do(httpclient.RequestOptions{
		Method:  req.Method,
		URL:     endpoint,
		Headers: headers,
		Body:    body,
		Context: ctx,
	})
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: s.objectPath(req.Object, req.Path), Err: err}
	}
	return checkResponse(resp)
}

// objectPath builds /api/{object}/version/{version}{path}.
func (s *Session) objectPath(object, path string) string {
	return fmt.Sprintf("/api/%s/version/%d%s", object, s.version, path)
}

// ObjectURL returns the absolute URL of an API object, without query.
func (s *Session) ObjectURL(object string) string {
	return s.baseURI + s.objectPath(object, "")
}
