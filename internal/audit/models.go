// internal/audit/models.go
package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Level controls how much of the backend traffic is persisted.
type Level int

const (
	LevelNone Level = iota
	LevelMetadata
	LevelRequests
	LevelResponses
	LevelAll
)

var levelNames = []string{"NONE", "METADATA", "REQUESTS", "RESPONSES", "ALL"}

func (l Level) String() string {
	if l < LevelNone || l > LevelAll {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// RequestType separates metadata fetches from aggregated query calls.
type RequestType string

const (
	RequestMetadata RequestType = "METADATA"
	RequestQuery    RequestType = "QUERY"
)

// StatusNotModified marks a metadata fetch whose content hash did not change.
const StatusNotModified = 304

var (
	ErrInvalidLevel = errors.New("INVALID_AUDIT_LEVEL")
	ErrNotFound     = errors.New("AUDIT_ENTRY_NOT_FOUND")
)

// Entry is one outbound call as persisted by the stores.
type Entry struct {
	ID            string      `json:"id"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Type          RequestType `json:"type"`
	Method        string      `json:"method"`
	URL           string      `json:"url"`
	BeaconID      string      `json:"beaconId,omitempty"`
	Code          int         `json:"code"`
	Message       string      `json:"message,omitempty"`
	Request       string      `json:"request,omitempty"`
	Response      string      `json:"response,omitempty"`
	ElapsedMS     int64       `json:"elapsedMs"`
	CreatedAt     time.Time   `json:"createdAt"`
}
