package model

import (
	"encoding/json"
	"time"
)

// Session is one user's in-progress conversation flow. There is at most one
// per user; starting a new flow replaces it.
type Session struct {
	UserID       string          `db:"user_id" json:"userId"`
	Flow         FlowKind        `db:"flow" json:"flow"`
	State        FlowState       `db:"state" json:"state"`
	Fields       json.RawMessage `db:"fields" json:"fields"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	LastActiveAt time.Time       `db:"last_active_at" json:"lastActiveAt"`
}

// Expired reports whether the session has been idle longer than ttl.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastActiveAt) > ttl
}

// FieldMap decodes the collected field values. A nil Fields value yields
// an empty map.
func (s *Session) FieldMap() (map[string]string, error) {
	fields := make(map[string]string)
	if len(s.Fields) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(s.Fields, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// SetFieldMap encodes the collected field values.
func (s *Session) SetFieldMap(fields map[string]string) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	s.Fields = data
	return nil
}

type UpsertSessionParams struct {
	UserID string
	Flow   FlowKind
	State  FlowState
	Fields json.RawMessage
}
