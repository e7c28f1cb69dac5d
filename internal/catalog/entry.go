package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Field limits enforced on insert and applied when a stored line is parsed back.
const (
	MaxIDLen   = 49
	MaxNameLen = 199
)

// Error kinds surfaced by the store.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorageUnavailable = errors.New("catalog storage unavailable")
	ErrNotFound           = errors.New("catalog entry not found")
)

// Entry is a single catalog record.
type Entry struct {
	ID   string
	Name string
}

// Validate checks that the entry can be written without breaking the line
// format.
func (e Entry) Validate() error {
	switch {
	case e.ID == "" || e.Name == "":
		return errors.New("id and name are required")
	case strings.ContainsAny(e.ID, ",\r\n"):
		return errors.New("id must not contain a comma or line break")
	case strings.ContainsAny(e.Name, "\r\n"):
		return errors.New("name must not contain a line break")
	case len(e.ID) > MaxIDLen:
		return fmt.Errorf("id is %d bytes, limit is %d", len(e.ID), MaxIDLen)
	case len(e.Name) > MaxNameLen:
		return fmt.Errorf("name is %d bytes, limit is %d", len(e.Name), MaxNameLen)
	}
	return nil
}

// Line renders the entry in its on-disk form, including the terminator.
func (e Entry) Line() string {
	return e.ID + "," + e.Name + "\n"
}

// ParseLine splits a stored line on its first comma. It reports false for
// lines that have no comma, an empty field, or a field over its length
// limit; such lines are skipped by lookups.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimRight(line, "\n")
	id, name, ok := strings.Cut(line, ",")
	if !ok || id == "" || name == "" {
		return Entry{}, false
	}
	if len(id) > MaxIDLen || len(name) > MaxNameLen {
		return Entry{}, false
	}
	return Entry{ID: id, Name: name}, true
}
