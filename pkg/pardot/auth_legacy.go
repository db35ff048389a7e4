package pardot

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	httpclient "github.com/natserract/pardot/pkg/http"
	"go.uber.org/zap"
)

// LegacyCredentials are the Pardot-only user credentials.
type LegacyCredentials struct {
	Email    string
	Password string
	UserKey  string
}

// LegacyAuth exchanges email, password and user key for an API key by
// calling the API's own login object.
type LegacyAuth struct {
	creds      LegacyCredentials
	loginURL   string
	httpClient *httpclient.Client
	tokenCache *tokenCache
	logger     *zap.Logger
}

// NewLegacyAuth creates a legacy strategy. loginURL is the full login object
// path, e.g. https://pi.pardot.com/api/login/version/4.
func NewLegacyAuth(creds LegacyCredentials, loginURL string, httpClient *httpclient.Client, logger *zap.Logger) (*LegacyAuth, error) {
	if creds.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if creds.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if creds.UserKey == "" {
		return nil, fmt.Errorf("user key is required")
	}
	if loginURL == "" {
		return nil, fmt.Errorf("login URL is required")
	}
	if httpClient == nil {
		httpClient = httpclient.NewClientWithLogger(logger)
	}
	return &LegacyAuth{
		creds:      creds,
		loginURL:   loginURL,
		httpClient: httpClient,
		tokenCache: &tokenCache{},
		logger:     logger,
	}, nil
}

func (a *LegacyAuth) Login(ctx context.Context) bool {
	a.logger.Info("Authenticating with Pardot user credentials",
		zap.String("email", prefix(a.creds.Email, 10)))

	endpoint, err := httpclient.BuildURL(a.loginURL, "", url.Values{"format": {"json"}})
	if err != nil {
		a.logger.Error("Failed to build login URL", zap.Error(err))
		return false
	}

	form := url.Values{
		"email":    {a.creds.Email},
		"password": {a.creds.Password},
		"user_key": {a.creds.UserKey},
	}
	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := a.httpClient.Post(ctx, endpoint, headers, form)
	if err != nil {
		a.logger.Error("Login request failed", zap.Error(err))
		return false
	}

	result, err := checkResponse(resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			a.logger.Warn("Login rejected",
				zap.Int("err_code", apiErr.Code),
				zap.String("message", apiErr.Message))
		} else {
			a.logger.Error("Failed to parse login response", zap.Error(err))
		}
		return false
	}
	if !result.IsJSON() {
		// The API sometimes answers a failed login with a bare status.
		a.logger.Warn("Login returned no JSON body", zap.Int("status_code", result.StatusCode))
		return false
	}

	apiKey := stringField(result.Body, "api_key")
	if apiKey == "" {
		a.logger.Warn("Login response missing api_key", zap.Int("status_code", result.StatusCode))
		return false
	}

	a.tokenCache.set(apiKey)
	a.logger.Info("Successfully authenticated with Pardot")
	return true
}

func (a *LegacyAuth) AuthHeader() (map[string]string, error) {
	apiKey := a.tokenCache.get()
	if apiKey == "" {
		return nil, ErrNotLoggedIn
	}
	return map[string]string{
		"Authorization": fmt.Sprintf("Pardot api_key=%s, user_key=%s", apiKey, a.creds.UserKey),
	}, nil
}

func (a *LegacyAuth) HasToken() bool {
	return a.tokenCache.get() != ""
}

func (a *LegacyAuth) Invalidate() {
	a.logger.Debug("Invalidating API key", zap.Duration("age", a.tokenCache.age()))
	a.tokenCache.clear()
}

func (a *LegacyAuth) TokenExpired(err *APIError) bool {
	return err != nil && err.Message == legacyExpiredMessage
}
