// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// A Marker is a textual pattern that a stage waits to observe.
// A marker is either a literal substring or a regular expression.
type Marker struct {
	// Name identifies the marker in errors and results.
	// For literal markers it defaults to the literal itself.
	Name string

	// Degraded marks an alternative that is valid but indicates
	// the session is running without some expected facility.
	Degraded bool

	literal string
	re      *regexp.Regexp
}

// Literal returns a marker matching any line containing s.
func Literal(s string) Marker {
	return Marker{Name: s, literal: s}
}

// Pattern returns a marker matching any line matched by the regular
// expression expr. Submatches of the first match are reported as the
// marker's captures. Pattern panics if expr does not compile; it is
// meant for fixed plans.
func Pattern(name, expr string) Marker {
	return Marker{Name: name, re: regexp.MustCompile(expr)}
}

// Match reports whether line contains m. For pattern markers, captures
// holds the submatches.
func (m Marker) Match(line string) (captures []string, ok bool) {
	if m.re == nil {
		return nil, m.literal != "" && strings.Contains(line, m.literal)
	}
	sub := m.re.FindStringSubmatch(line)
	if sub == nil {
		return nil, false
	}
	return sub[1:], true
}

func (m Marker) String() string {
	if m.re != nil {
		return fmt.Sprintf("%s (/%s/)", m.Name, m.re)
	}
	return fmt.Sprintf("%q", m.literal)
}

// An Action says what a stage does with the output it observed.
type Action int

const (
	// Discard drops the lines before the marker.
	Discard Action = iota
	// Capture hands the lines since the previous stage's match,
	// excluding both marker lines, to the block sink.
	Capture
	// Select records which of the stage's alternative markers matched.
	Select
)

func (a Action) String() string {
	switch a {
	case Discard:
		return "discard"
	case Capture:
		return "capture"
	case Select:
		return "select"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// A Stage is one ordered step of a session.
type Stage struct {
	Name string

	// Markers are the alternatives the stage waits for. The stage
	// completes at the first line matching any of them; markers
	// are tried in order on each line.
	Markers []Marker

	// Timeout bounds the time from the start of the stage to its
	// match. It must be positive.
	Timeout time.Duration

	Action Action

	// Block names the kind of data captured by a Capture stage,
	// such as "throughput".
	Block string
}

// A Plan is the ordered list of stages for one session.
type Plan []Stage

// Validate checks that every stage in p can be executed.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("empty plan")
	}
	seen := make(map[string]bool)
	for i, st := range p {
		switch {
		case st.Name == "":
			return fmt.Errorf("stage %d: missing name", i)
		case seen[st.Name]:
			return fmt.Errorf("stage %s: duplicate name", st.Name)
		case len(st.Markers) == 0:
			return fmt.Errorf("stage %s: no markers", st.Name)
		case st.Timeout <= 0:
			return fmt.Errorf("stage %s: timeout must be positive, have %v", st.Name, st.Timeout)
		case st.Action == Capture && st.Block == "":
			return fmt.Errorf("stage %s: capture stage without block kind", st.Name)
		}
		seen[st.Name] = true
	}
	return nil
}
