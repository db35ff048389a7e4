package pardot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	httpclient "github.com/natserract/pardot/pkg/http"
)

// Result is the outcome of a successful call. Body is nil when the API
// answered without JSON, in which case only StatusCode is meaningful
// (for example 204 No Content after a delete) and Raw holds any payload.
type Result struct {
	StatusCode int
	Body       map[string]any
	Raw        []byte
}

// IsJSON reports whether the response carried a JSON body.
func (r *Result) IsJSON() bool {
	return r != nil && r.Body != nil
}

// checkResponse classifies a raw response into a Result or an *APIError.
func checkResponse(resp *httpclient.Response) (*Result, error) {
	if isJSON(resp.Headers) && len(bytes.TrimSpace(resp.Body)) > 0 {
		var body map[string]any
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, fmt.Errorf("failed to parse response body: %w", err)
		}
		if apiErr := errorFromBody(body, resp.StatusCode); apiErr != nil {
			return nil, apiErr
		}
		return &Result{StatusCode: resp.StatusCode, Body: body}, nil
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			Code:       resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	return &Result{StatusCode: resp.StatusCode, Raw: resp.Body}, nil
}

func isJSON(h http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func errorFromBody(body map[string]any, statusCode int) *APIError {
	raw, ok := body["err"]
	if !ok || raw == nil || raw == "" {
		return nil
	}

	apiErr := &APIError{
		Message:    fmt.Sprint(raw),
		StatusCode: statusCode,
		Response:   body,
	}
	attrs, _ := body["@attributes"].(map[string]any)
	code, ok := toInt(attrs["err_code"])
	if !ok {
		apiErr.Code = 0
		apiErr.Message = unknownErrorMessage
		return apiErr
	}
	apiErr.Code = code
	return apiErr
}

// toInt accepts the numeric shapes the API uses interchangeably.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}
