package http

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL appends an escaped path to the base URL's path and sets the query
// parameters.
func BuildURL(baseURL, path string, queryParams url.Values) (string, error) {
	// Parse the base URL
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("error parsing base URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("base URL must be absolute: %q", baseURL)
	}

	// Append the path, which must already be escaped
	escaped := strings.TrimRight(parsedURL.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("error unescaping path: %w", err)
	}
	parsedURL.Path = unescaped
	parsedURL.RawPath = escaped

	// Set query parameters dynamically
	q := parsedURL.Query()
	for key, values := range queryParams {
		q.Del(key)
		for _, value := range values {
			q.Add(key, value)
		}
	}
	parsedURL.RawQuery = q.Encode()

	// Return the full URL as a string
	return parsedURL.String(), nil
}

var sensitiveParams = []string{"api_key", "user_key", "password", "client_secret", "access_token", "refresh_token"}

// redactURL masks credential query parameters before a URL is logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for _, key := range sensitiveParams {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
