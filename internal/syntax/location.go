package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

// Location identifies a position in a source document.
//
// Lines and columns are 1-based. A zero Location means "unknown" and is
// produced for synthesized nodes (e.g. arguments injected by the rewriter).
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// IsValid reports whether the location refers to a real source position.
func (l Location) IsValid() bool {
	return l.Line > 0
}

// Before reports whether l starts strictly before other.
func (l Location) Before(other Location) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}

// String formats the location as file:line:column.
func (l Location) String() string {
	if !l.IsValid() {
		if l.File == "" {
			return "-"
		}
		return l.File
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Matches reports whether l is at pattern. A zero pattern column matches
// any column of the line.
func (l Location) Matches(pattern Location) bool {
	return l.File == pattern.File && l.Line == pattern.Line &&
		(pattern.Column == 0 || l.Column == pattern.Column)
}

// ParseLocation parses "file:line" or "file:line:column".
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return Location{}, fmt.Errorf("invalid location %q: want file:line[:col]", s)
	}
	loc := Location{File: parts[0]}
	var err error
	if loc.Line, err = strconv.Atoi(parts[1]); err != nil || loc.Line <= 0 {
		return Location{}, fmt.Errorf("invalid line in location %q", s)
	}
	if len(parts) == 3 {
		if loc.Column, err = strconv.Atoi(parts[2]); err != nil || loc.Column <= 0 {
			return Location{}, fmt.Errorf("invalid column in location %q", s)
		}
	}
	return loc, nil
}
