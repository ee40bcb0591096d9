// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"fmt"
	"strings"
	"time"
)

// A StageTimeoutError reports that none of a stage's markers appeared
// within the stage's timeout. It is fatal for the session.
type StageTimeoutError struct {
	Stage   string
	Markers []Marker
	Timeout time.Duration
	Elapsed time.Duration // time spent in the stage
	Session time.Duration // time since the session started
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s: no %s after %v (timeout %v, session time %v)",
		e.Stage, markerList(e.Markers), e.Elapsed.Round(time.Millisecond), e.Timeout, e.Session.Round(time.Millisecond))
}

// A PrematureExitError reports that the process output ended before
// all stages completed. It is fatal for the session.
type PrematureExitError struct {
	Stage   string
	Markers []Marker
	Elapsed time.Duration // time spent in the stage
	Session time.Duration // time since the session started
	Err     error         // io.EOF or the read error that ended the stream
}

func (e *PrematureExitError) Error() string {
	return fmt.Sprintf("stage %s: output ended after %v while waiting for %s (session time %v): %v",
		e.Stage, e.Elapsed.Round(time.Millisecond), markerList(e.Markers), e.Session.Round(time.Millisecond), e.Err)
}

func (e *PrematureExitError) Unwrap() error { return e.Err }

// A DegradedModeError reports that a stage matched an alternative
// marked as degraded. It is a warning: the session continues, and the
// error is reported in Result.Warnings.
type DegradedModeError struct {
	Stage  string
	Marker Marker
	Line   int // transcript line of the match
}

func (e *DegradedModeError) Error() string {
	return fmt.Sprintf("stage %s: degraded mode: %s (line %d)", e.Stage, e.Marker.Name, e.Line)
}

func markerList(ms []Marker) string {
	if len(ms) == 1 {
		return ms[0].String()
	}
	var b strings.Builder
	b.WriteString("one of ")
	for i, m := range ms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.String())
	}
	return b.String()
}
