package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ParseStatus is the lifecycle state of a resume's extraction and summary.
type ParseStatus string

const (
	ParseStatusPending    ParseStatus = "pending"
	ParseStatusProcessing ParseStatus = "processing"
	ParseStatusCompleted  ParseStatus = "completed"
	ParseStatusFailed     ParseStatus = "failed"
)

// ParseParseStatus converts a stored or user supplied value into a ParseStatus.
func ParseParseStatus(s string) (ParseStatus, error) {
	switch ParseStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ParseStatusPending:
		return ParseStatusPending, nil
	case ParseStatusProcessing:
		return ParseStatusProcessing, nil
	case ParseStatusCompleted:
		return ParseStatusCompleted, nil
	case ParseStatusFailed:
		return ParseStatusFailed, nil
	default:
		return "", fmt.Errorf("unknown parse status %q", s)
	}
}

// CanTransitionTo reports whether the parse pipeline may move from s to next.
// Moving back to pending is reserved for a new upload and is never allowed here.
func (s ParseStatus) CanTransitionTo(next ParseStatus) bool {
	switch s {
	case ParseStatusPending:
		return next == ParseStatusProcessing
	case ParseStatusProcessing:
		switch next {
		case ParseStatusProcessing, ParseStatusCompleted, ParseStatusFailed:
			return true
		case ParseStatusPending:
			return false
		default:
			return false
		}
	case ParseStatusFailed:
		// a dispatcher retry re-enters the same upload cycle
		return next == ParseStatusProcessing
	case ParseStatusCompleted:
		return false
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (s *ParseStatus) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = ParseStatusPending
		return nil
	default:
		return fmt.Errorf("unsupported parse status type %T", value)
	}

	parsed, err := ParseParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s ParseStatus) Value() (driver.Value, error) {
	if _, err := ParseParseStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}
