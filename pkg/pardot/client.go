// Package pardot provides a client for the Pardot (Marketing Cloud Account
// Engagement) REST API, versions 3 and 4.
//
// Pardot is Salesforce's B2B marketing automation platform. Its API exposes
// objects such as prospects, lists, list memberships, campaigns, emails,
// opportunities and visitor activity under
//
//	https://pi.pardot.com/api/{object}/version/{version}/do/{operation}
//
// Two authentication schemes are supported side by side:
//   - Legacy: a Pardot-only user's email, password and user key are exchanged
//     for an api_key by calling the login object.
//   - OAuth2: a Salesforce SSO user authenticates through a connected app
//     (password or refresh token grant). The bearer token is sent together
//     with the Pardot business unit id.
//
// Session tokens expire on the server without notice. The Session detects
// the scheme's expiry message and re-authenticates and replays the call
// once, so callers only see errors that are not token expiry.
package pardot

import (
	"context"
	"fmt"
	"strings"

	"github.com/natserract/pardot/pkg/config"
	httpclient "github.com/natserract/pardot/pkg/http"
	"go.uber.org/zap"
)

// Client is the main entry point. Each field wraps one Pardot object.
type Client struct {
	session *Session
	objects map[string]*Object
	logger  *zap.Logger

	Accounts           *Object
	Campaigns          *Object
	CustomFields       *Object
	CustomRedirects    *Object
	DynamicContent     *Object
	EmailClicks        *Object
	Emails             *Object
	EmailTemplates     *Object
	Forms              *Object
	Imports            *Object
	LifecycleHistories *Object
	LifecycleStages    *Object
	ListMemberships    *Object
	Lists              *Object
	Opportunities      *Object
	Prospects          *Object
	ProspectAccounts   *Object
	Tags               *Object
	TagObjects         *Object
	Users              *Object
	Visitors           *Object
	VisitorActivities  *Object
	Visits             *Object
}

// New creates a client from configuration with the default production logger
func New(cfg *config.Config) (*Client, error) {
	logger, _ := zap.NewProduction()
	return NewWithLogger(cfg, logger)
}

// NewWithLogger creates a client from configuration with a custom logger.
// The authentication strategy is chosen from the configured auth mode.
func NewWithLogger(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	httpClient := httpclient.NewClientWithOptions(logger, cfg.HTTPTimeout, cfg.HTTPMaxTries)

	auth, err := NewAuthStrategy(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	session := NewSession(cfg.BaseURI, cfg.APIVersion, auth, httpClient, logger)
	return NewClient(session, logger), nil
}

// NewAuthStrategy builds the strategy selected by cfg.
func NewAuthStrategy(cfg *config.Config, httpClient *httpclient.Client, logger *zap.Logger) (AuthStrategy, error) {
	switch mode := cfg.ResolvedAuthMode(); mode {
	case config.AuthModeLegacy:
		baseURI := cfg.BaseURI
		if baseURI == "" {
			baseURI = DefaultBaseURI
		}
		version := cfg.APIVersion
		if version == 0 {
			version = DefaultAPIVersion
		}
		loginURL := fmt.Sprintf("%s/api/%s/version/%d", strings.TrimRight(baseURI, "/"), loginObject, version)
		return NewLegacyAuth(LegacyCredentials{
			Email:    cfg.Email,
			Password: cfg.Password,
			UserKey:  cfg.UserKey,
		}, loginURL, httpClient, logger)
	case config.AuthModeOAuth:
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = TokenURL(cfg.Sandbox)
		}
		return NewOAuthAuth(OAuthCredentials{
			Username:       cfg.Email,
			Password:       cfg.Password,
			SecurityToken:  cfg.SecurityToken,
			ConsumerKey:    cfg.ConsumerKey,
			ConsumerSecret: cfg.ConsumerSecret,
			BusinessUnitID: cfg.BusinessUnitID,
			RefreshToken:   cfg.RefreshToken,
		}, tokenURL, httpClient, logger)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// NewClient wires the object table onto a session (or any Doer).
func NewClient(doer Doer, logger *zap.Logger) *Client {
	c := &Client{
		objects: make(map[string]*Object, len(objectTable)),
		logger:  logger,
	}
	if s, ok := doer.(*Session); ok {
		c.session = s
	}
	for _, spec := range objectTable {
		c.objects[spec.name] = newObject(spec.name, spec.collection, doer, logger, spec.ops...)
	}

	c.Accounts = c.objects["account"]
	c.Campaigns = c.objects["campaign"]
	c.CustomFields = c.objects["customField"]
	c.CustomRedirects = c.objects["customRedirect"]
	c.DynamicContent = c.objects["dynamicContent"]
	c.EmailClicks = c.objects["emailClick"]
	c.Emails = c.objects["email"]
	c.EmailTemplates = c.objects["emailTemplate"]
	c.Forms = c.objects["form"]
	c.Imports = c.objects["import"]
	c.LifecycleHistories = c.objects["lifecycleHistory"]
	c.LifecycleStages = c.objects["lifecycleStage"]
	c.ListMemberships = c.objects["listMembership"]
	c.Lists = c.objects["list"]
	c.Opportunities = c.objects["opportunity"]
	c.Prospects = c.objects["prospect"]
	c.ProspectAccounts = c.objects["prospectAccount"]
	c.Tags = c.objects["tag"]
	c.TagObjects = c.objects["tagObject"]
	c.Users = c.objects["user"]
	c.Visitors = c.objects["visitor"]
	c.VisitorActivities = c.objects["visitorActivity"]
	c.Visits = c.objects["visit"]
	return c
}

// Object looks up a wrapper by API object name, case-insensitively.
func (c *Client) Object(name string) (*Object, bool) {
	if o, ok := c.objects[name]; ok {
		return o, true
	}
	for key, o := range c.objects {
		if strings.EqualFold(key, name) {
			return o, true
		}
	}
	return nil, false
}

// ObjectNames lists the API object names known to the client.
func (c *Client) ObjectNames() []string {
	names := make([]string, 0, len(objectTable))
	for _, spec := range objectTable {
		names = append(names, spec.name)
	}
	return names
}

// Session returns the underlying session, or nil when the client was built
// on a different Doer.
func (c *Client) Session() *Session {
	return c.session
}

// Login authenticates eagerly. Calls log in lazily otherwise.
func (c *Client) Login(ctx context.Context) error {
	if c.session == nil {
		return fmt.Errorf("client has no session")
	}
	return c.session.Login(ctx)
}
