// Package idgen produces ordered, human-readable migration identifiers of the
// form "<YYYYMMDDHHMMSS>_<name>".
package idgen

import (
	"fmt"
	"regexp"
	"sync"
	"time"
)

const (
	// TimestampFormat is the layout of the identifier prefix (UTC, second resolution)
	TimestampFormat = "20060102150405"

	prefixLength = len(TimestampFormat) + 1
)

var validID = regexp.MustCompile(`^\d{14}_.+`)

// Generator issues strictly increasing identifiers. A single Generator is
// meant to be shared by every caller in the process.
type Generator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// New creates a generator reading the wall clock
func New() *Generator {
	return NewWithClock(time.Now)
}

// NewWithClock creates a generator with an injected clock
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// GenerateID returns "<timestamp>_<name>". When the clock has not advanced
// past the previous identifier, the timestamp is bumped by one second.
func (g *Generator) GenerateID(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UTC().Truncate(time.Second)
	if !ts.After(g.last) {
		ts = g.last.Add(time.Second)
	}
	g.last = ts

	return fmt.Sprintf("%s_%s", ts.Format(TimestampFormat), name)
}

// IsValidID reports whether value has the "14 digits, underscore, name" shape
func IsValidID(value string) bool {
	return validID.MatchString(value)
}

// GetName strips the timestamp prefix. Invalid identifiers are returned as is.
func GetName(id string) string {
	if !IsValidID(id) {
		return id
	}
	return id[prefixLength:]
}

// Timestamp parses the UTC time encoded in id
func Timestamp(id string) (time.Time, error) {
	if !IsValidID(id) {
		return time.Time{}, fmt.Errorf("invalid migration id %q", id)
	}
	return time.ParseInLocation(TimestampFormat, id[:len(TimestampFormat)], time.UTC)
}
