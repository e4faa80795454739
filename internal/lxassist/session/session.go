package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Session is the authenticated identity. It does not change for the
// lifetime of the login; logging in again replaces it.
type Session struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	Attributes map[string]string `json:"attributes,omitempty"` // extra fields of the identity record
	CreatedAt  time.Time         `json:"created_at"`
}

// NewSession creates a session for the given identity.
func NewSession(id, username string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}
	return &Session{
		ID:        id,
		Username:  strings.TrimSpace(username),
		CreatedAt: time.Now(),
	}, nil
}

// GetShortID returns the shortened identity (first 8 characters)
func (s *Session) GetShortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}

// GetDisplayName returns the username, or the short ID when no username
// is known.
func (s *Session) GetDisplayName() string {
	if s.Username != "" {
		return s.Username
	}
	return s.GetShortID()
}

// decodeSession parses a persisted identity record. Records written by
// other clients carry at least "id"; a numeric id is accepted, and any
// other top-level string field is kept in Attributes.
func decodeSession(data string) (*Session, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, err
	}

	s := &Session{}
	for key, value := range raw {
		switch key {
		case "id", "user_id":
			if s.ID != "" {
				continue
			}
			var str string
			if err := json.Unmarshal(value, &str); err == nil {
				s.ID = str
				continue
			}
			var num json.Number
			if err := json.Unmarshal(value, &num); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			s.ID = num.String()
		case "username":
			_ = json.Unmarshal(value, &s.Username)
		case "created_at":
			_ = json.Unmarshal(value, &s.CreatedAt)
		case "attributes":
			_ = json.Unmarshal(value, &s.Attributes)
		default:
			var str string
			if err := json.Unmarshal(value, &str); err == nil {
				if s.Attributes == nil {
					s.Attributes = make(map[string]string)
				}
				s.Attributes[key] = str
			}
		}
	}

	if strings.TrimSpace(s.ID) == "" {
		return nil, fmt.Errorf("identity record has no id")
	}
	return s, nil
}
