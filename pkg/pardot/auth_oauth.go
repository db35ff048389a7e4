package pardot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	httpclient "github.com/natserract/pardot/pkg/http"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	salesforceLoginTokenURL   = "https://login.salesforce.com/services/oauth2/token"
	salesforceSandboxTokenURL = "https://test.salesforce.com/services/oauth2/token"
)

// TokenURL returns the Salesforce token endpoint for production or sandbox.
func TokenURL(sandbox bool) string {
	if sandbox {
		return salesforceSandboxTokenURL
	}
	return salesforceLoginTokenURL
}

// OAuthCredentials are the Salesforce SSO credentials of a connected app.
// SecurityToken is appended to Password when set. When RefreshToken is set
// the refresh_token grant is used instead of the password grant.
type OAuthCredentials struct {
	Username       string
	Password       string
	SecurityToken  string
	ConsumerKey    string
	ConsumerSecret string
	BusinessUnitID string
	RefreshToken   string
}

// OAuthAuth obtains a bearer token from Salesforce and pairs it with the
// Pardot business unit id on every request.
type OAuthAuth struct {
	creds       OAuthCredentials
	tokenURL    string
	oauthConfig *oauth2.Config
	httpClient  *httpclient.Client
	tokenCache  *tokenCache
	logger      *zap.Logger
}

func NewOAuthAuth(creds OAuthCredentials, tokenURL string, httpClient *httpclient.Client, logger *zap.Logger) (*OAuthAuth, error) {
	if creds.ConsumerKey == "" {
		return nil, fmt.Errorf("consumer key is required")
	}
	if creds.ConsumerSecret == "" {
		return nil, fmt.Errorf("consumer secret is required")
	}
	if creds.BusinessUnitID == "" {
		return nil, fmt.Errorf("business unit id is required")
	}
	if creds.RefreshToken == "" && (creds.Username == "" || creds.Password == "") {
		return nil, fmt.Errorf("username and password are required without a refresh token")
	}
	if tokenURL == "" {
		tokenURL = TokenURL(false)
	}
	if httpClient == nil {
		httpClient = httpclient.NewClientWithLogger(logger)
	}

	return &OAuthAuth{
		creds:    creds,
		tokenURL: tokenURL,
		oauthConfig: &oauth2.Config{
			ClientID:     creds.ConsumerKey,
			ClientSecret: creds.ConsumerSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		tokenCache: &tokenCache{},
		logger:     logger,
	}, nil
}

func (a *OAuthAuth) Login(ctx context.Context) bool {
	a.logger.Info("Authenticating with Salesforce OAuth2",
		zap.String("consumer_key", prefix(a.creds.ConsumerKey, 10)),
		zap.String("url", a.tokenURL),
		zap.Bool("refresh_grant", a.creds.RefreshToken != ""))

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient.HTTPClient())

	var (
		tok *oauth2.Token
		err error
	)
	if a.creds.RefreshToken != "" {
		tok, err = a.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: a.creds.RefreshToken}).Token()
	} else {
		password := a.creds.Password + a.creds.SecurityToken
		tok, err = a.oauthConfig.PasswordCredentialsToken(ctx, a.creds.Username, password)
	}
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			a.logger.Warn("Token request rejected",
				zap.Int("status_code", retrieveErr.Response.StatusCode),
				zap.String("error", retrieveErr.ErrorCode),
				zap.String("error_description", retrieveErr.ErrorDescription))
		} else {
			a.logger.Error("Token request failed", zap.Error(err))
		}
		return false
	}
	if tok.AccessToken == "" {
		a.logger.Warn("Token response missing access_token")
		return false
	}

	a.tokenCache.set(tok.AccessToken)
	instanceURL, _ := tok.Extra("instance_url").(string)
	a.logger.Info("Successfully retrieved OAuth2 access token",
		zap.String("token_type", tok.TokenType),
		zap.String("instance_url", instanceURL))
	return true
}

func (a *OAuthAuth) AuthHeader() (map[string]string, error) {
	token := a.tokenCache.get()
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return map[string]string{
		"Authorization":           "Bearer " + token,
		"Pardot-Business-Unit-Id": a.creds.BusinessUnitID,
		"Content-Type":            "application/x-www-form-urlencoded",
	}, nil
}

func (a *OAuthAuth) HasToken() bool {
	return a.tokenCache.get() != ""
}

func (a *OAuthAuth) Invalidate() {
	a.logger.Debug("Invalidating access token", zap.Duration("age", a.tokenCache.age()))
	a.tokenCache.clear()
}

func (a *OAuthAuth) TokenExpired(err *APIError) bool {
	return err != nil && err.Message == oauthExpiredMessage
}

// Revoke revokes the current access token at Salesforce and drops it
// locally. It is a no-op when no token is held.
func (a *OAuthAuth) Revoke(ctx context.Context) error {
	token := a.tokenCache.get()
	if token == "" {
		return nil
	}

	revokeURL := strings.TrimSuffix(a.tokenURL, "/token") + "/revoke"
	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}
	resp, err := a.httpClient.Post(ctx, revokeURL, headers, url.Values{"token": {token}})
	if err != nil {
		a.logger.Error("Revoke request failed", zap.Error(err))
		return &TransportError{Method: "POST", URL: revokeURL, Err: err}
	}
	if resp.StatusCode >= 400 {
		a.logger.Error("Revoke failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(resp.Body)))
		return fmt.Errorf("revoke failed with status %d: %s", resp.StatusCode, string(resp.Body))
	}

	a.tokenCache.clear()
	a.logger.Info("Revoked OAuth2 access token")
	return nil
}
