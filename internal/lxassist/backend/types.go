package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

// AskResponse is the body of a successful POST /ask.
type AskResponse struct {
	Answer         string
	ConversationID string
}

// askPayload detects missing fields, which a plain struct would hide.
type askPayload struct {
	Answer         *string `json:"answer"`
	ConversationID ID      `json:"conversation_id"`
}

// Conversation is a backend-persisted question/answer exchange.
type Conversation struct {
	ID        ID        `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp Timestamp `json:"timestamp"`
}

// ID is an identifier the backend may encode as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp accepts RFC 3339 times, ISO times without a zone (read as
// UTC), and unix epoch numbers in seconds or milliseconds.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Unix seconds beyond this are taken as milliseconds (year 2286 in seconds).
const epochMillisThreshold = 9_999_999_999

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if len(data) > 0 && data[0] != '"' {
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s", data)
		}
		if n > epochMillisThreshold {
			t.Time = time.UnixMilli(int64(n)).UTC()
		} else {
			sec := int64(n)
			t.Time = time.Unix(sec, int64((n-float64(sec))*1e9)).UTC()
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
