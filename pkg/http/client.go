package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	maxTries   uint
}

type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
	Context context.Context
	// MaxTries overrides the client default. 1 means a single attempt.
	MaxTries        uint
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// MultipartBody is sent as multipart/form-data with a single file part.
type MultipartBody struct {
	Fields    url.Values
	FileField string
	FileName  string
	Content   []byte
}

// serverStatusError marks a 5xx response so it can be retried and, once the
// budget is spent, handed back to the caller as a normal response.
type serverStatusError struct {
	resp *Response
}

func (e *serverStatusError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.resp.StatusCode, string(e.resp.Body))
}

func NewClient() *Client {
	logger, _ := zap.NewProduction()
	return NewClientWithLogger(logger)
}

// NewClientWithLogger creates a new HTTP client with a custom logger
func NewClientWithLogger(logger *zap.Logger) *Client {
	return NewClientWithOptions(logger, DefaultTimeout, 1)
}

// NewClientWithOptions creates a client with an explicit request timeout and
// attempt budget. maxTries of 0 is treated as 1.
func NewClientWithOptions(logger *zap.Logger, timeout time.Duration, maxTries uint) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxTries == 0 {
		maxTries = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:   logger,
		maxTries: maxTries,
	}
}

// HTTPClient exposes the underlying net/http client so other libraries can
// share its timeout and transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Do issues the request and returns the response for any HTTP status.
// Only transport failures are returned as errors. Network errors and 5xx
// responses are retried with exponential backoff when more than one try is
// allowed.
func (c *Client) Do(opts RequestOptions) (*Response, error) {
	// Set default backoff configuration
	if opts.MaxTries == 0 {
		opts.MaxTries = c.maxTries
	}
	if opts.MaxElapsed == 0 {
		opts.MaxElapsed = 2 * time.Minute
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 100 * time.Millisecond
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = 10 * time.Second
	}

	// Create exponential backoff
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = opts.InitialInterval
	expBackoff.MaxInterval = opts.MaxInterval
	expBackoff.Reset()

	// Use context if provided
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryable := opts.MaxTries > 1

	operation := func() (*Response, error) {
		req, err := c.buildRequest(ctx, opts)
		if err != nil {
			c.logger.Error("Failed to build request", zap.Error(err), zap.String("method", opts.Method), zap.String("url", redactURL(opts.URL)))
			return nil, backoff.Permanent(err)
		}

		c.logger.Debug("Making HTTP request",
			zap.String("method", opts.Method),
			zap.String("url", redactURL(opts.URL)))

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			if !retryable {
				return nil, backoff.Permanent(err)
			}
			c.logger.Warn("HTTP request failed, will retry",
				zap.Error(err),
				zap.String("method", opts.Method),
				zap.String("url", redactURL(opts.URL)))
			return nil, err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(httpResp.Body)
		if err != nil {
			c.logger.Error("Failed to read response body", zap.Error(err))
			return nil, backoff.Permanent(fmt.Errorf("failed to read response body: %w", err))
		}

		resp := &Response{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
			Body:       body,
		}

		if retryable && httpResp.StatusCode >= 500 {
			c.logger.Warn("Server error, will retry",
				zap.Int("status_code", httpResp.StatusCode),
				zap.String("method", opts.Method),
				zap.String("url", redactURL(opts.URL)))
			return nil, &serverStatusError{resp: resp}
		}

		c.logger.Debug("HTTP request finished",
			zap.Int("status_code", httpResp.StatusCode),
			zap.String("method", opts.Method),
			zap.String("url", redactURL(opts.URL)))

		return resp, nil
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(opts.MaxElapsed),
		backoff.WithMaxTries(opts.MaxTries),
	}

	resp, err := backoff.Retry(ctx, operation, retryOpts...)
	if err != nil {
		var statusErr *serverStatusError
		if errors.As(err, &statusErr) {
			// Budget spent on 5xx responses; hand the last one back.
			return statusErr.resp, nil
		}
		c.logger.Error("HTTP request failed",
			zap.Error(err),
			zap.String("method", opts.Method),
			zap.String("url", redactURL(opts.URL)))
		return nil, err
	}

	return resp, nil
}

func (c *Client) buildRequest(ctx context.Context, opts RequestOptions) (*http.Request, error) {
	var bodyReader io.Reader
	contentType := opts.Headers["Content-Type"]
	if contentType == "" {
		contentType = opts.Headers["content-type"]
	}

	if opts.Body != nil {
		switch v := opts.Body.(type) {
		case []byte:
			bodyReader = bytes.NewReader(v)
		case *MultipartBody:
			buf, ct, err := encodeMultipart(v)
			if err != nil {
				return nil, err
			}
			bodyReader = buf
			contentType = ct
		default:
			// If Content-Type explicitly requests form encoding, honor it.
			if strings.HasPrefix(strings.ToLower(contentType), "application/x-www-form-urlencoded") {
				form, err := toForm(opts.Body)
				if err != nil {
					return nil, err
				}
				bodyReader = strings.NewReader(form.Encode())
			} else {
				bodyJSON, err := json.Marshal(opts.Body)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal request body: %w", err)
				}
				bodyReader = bytes.NewReader(bodyJSON)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	// Set custom headers
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	// Set default headers
	if opts.Body != nil {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func toForm(body interface{}) (url.Values, error) {
	form := url.Values{}

	switch v := body.(type) {
	case url.Values:
		return v, nil
	case map[string]string:
		for k, val := range v {
			form.Set(k, val)
		}
	case map[string]interface{}:
		for k, val := range v {
			if val == nil {
				continue
			}
			form.Set(k, fmt.Sprint(val))
		}
	default:
		// Convert structs (or other JSON-marshalable types) into a map first.
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(bodyJSON, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request body: %w", err)
		}
		for k, val := range m {
			if val == nil {
				continue
			}
			form.Set(k, fmt.Sprint(val))
		}
	}
	return form, nil
}

func encodeMultipart(body *MultipartBody) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, vals := range body.Fields {
		for _, val := range vals {
			if err := w.WriteField(k, val); err != nil {
				return nil, "", fmt.Errorf("failed to write multipart field %s: %w", k, err)
			}
		}
	}
	if body.FileField != "" {
		part, err := w.CreateFormFile(body.FileField, body.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create multipart file part: %w", err)
		}
		if _, err := part.Write(body.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write multipart file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(RequestOptions{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
		Context: ctx,
	})
}

func (c *Client) Post(ctx context.Context, url string, headers map[string]string, body interface{}) (*Response, error) {
	return c.Do(RequestOptions{
		Method:  http.MethodPost,
		URL:     url,
		Headers: headers,
		Body:    body,
		Context: ctx,
	})
}

func (c *Client) Patch(ctx context.Context, url string, headers map[string]string, body interface{}) (*Response, error) {
	return c.Do(RequestOptions{
		Method:  http.MethodPatch,
		URL:     url,
		Headers: headers,
		Body:    body,
		Context: ctx,
	})
}
