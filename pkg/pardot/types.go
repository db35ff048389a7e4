package pardot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// APITime handles Pardot timestamps, which come without a timezone
// (e.g., "2020-09-09 04:04:02").
type APITime struct {
	time.Time
}

const apiTimeLayout = "2006-01-02 15:04:05"

// UnmarshalJSON implements json.Unmarshaler for APITime
func (t *APITime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var timeStr string
	if err := json.Unmarshal(data, &timeStr); err != nil {
		return err
	}

	// Handle empty string
	if timeStr == "" {
		t.Time = time.Time{}
		return nil
	}

	formats := []string{
		apiTimeLayout,
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}
	for _, format := range formats {
		if parsed, err := time.Parse(format, timeStr); err == nil {
			t.Time = parsed
			return nil
		}
	}

	// Try the date/time part without fractional seconds
	if i := strings.IndexByte(timeStr, '.'); i > 0 {
		if parsed, err := time.Parse(apiTimeLayout, timeStr[:i]); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unable to parse time string: %s", timeStr)
}

// MarshalJSON implements json.Marshaler for APITime
func (t APITime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(apiTimeLayout))
}

// Prospect is the subset of prospect fields most callers need. Use
// DecodeRecord on the raw record for custom fields.
type Prospect struct {
	ID         int     `json:"id"`
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name,omitempty"`
	LastName   string  `json:"last_name,omitempty"`
	Company    string  `json:"company,omitempty"`
	Score      int     `json:"score,omitempty"`
	CRMLeadFID string  `json:"crm_lead_fid,omitempty"`
	CreatedAt  APITime `json:"created_at"`
	UpdatedAt  APITime `json:"updated_at"`
}

// List represents a Pardot list
type List struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title,omitempty"`
	Description  string  `json:"description,omitempty"`
	IsPublic     bool    `json:"is_public"`
	IsDynamic    bool    `json:"is_dynamic"`
	IsCRMVisible bool    `json:"is_crm_visible"`
	CreatedAt    APITime `json:"created_at"`
	UpdatedAt    APITime `json:"updated_at"`
}

// ListMembership links a prospect to a list
type ListMembership struct {
	ID         int     `json:"id"`
	ListID     int     `json:"list_id"`
	ProspectID int     `json:"prospect_id"`
	OptedOut   bool    `json:"opted_out"`
	CreatedAt  APITime `json:"created_at"`
	UpdatedAt  APITime `json:"updated_at"`
}

// Campaign represents a Pardot campaign
type Campaign struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Cost int    `json:"cost,omitempty"`
}

// DecodeRecord converts a raw record into a typed value.
func DecodeRecord[T any](record map[string]any) (T, error) {
	var v T
	b, err := json.Marshal(record)
	if err != nil {
		return v, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("failed to decode record: %w", err)
	}
	return v, nil
}

// DecodeRecords converts the records of a query result.
func DecodeRecords[T any](records []map[string]any) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, record := range records {
		v, err := DecodeRecord[T](record)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
