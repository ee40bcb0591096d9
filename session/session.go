// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session drives an interactive benchmark process through an
// ordered plan of expected console markers.
//
// A Plan is a list of Stages. The Controller executes the stages
// strictly in order against the process output: each stage reads
// lines until one matches one of its markers or its timeout elapses.
// Capture stages hand the text between two markers to a BlockSink as
// soon as they complete, so each block is durable even if a later
// stage fails. Any timeout or premature end of output aborts the
// whole session; the Controller never retries a stage. The process
// is always killed when Run returns.
package session

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"vmops.dev/lab/transcript"
)

// A Process is a running benchmark process.
type Process interface {
	// Output returns the merged stdout and stderr of the process.
	Output() io.Reader
	// Kill forcibly terminates the process.
	Kill() error
}

// A BlockSink persists captured blocks.
type BlockSink interface {
	AppendBlock(kind, block string) error
}

// A Controller executes session plans.
type Controller struct {
	// Sink, if non-nil, receives every captured block before the
	// next stage starts.
	Sink BlockSink

	// Transcript, if non-nil, receives a copy of every line read
	// from the process.
	Transcript io.Writer

	// Log, if non-nil, receives progress and warning messages.
	Log *log.Logger
}

// A Result is what a session observed.
type Result struct {
	// Blocks maps a block kind to its captured text, without the
	// delimiting marker lines.
	Blocks map[string]string

	// Selected maps the name of each Select stage to the index of
	// the marker that matched.
	Selected map[string]int

	// Captures maps a stage name to the submatches of the pattern
	// marker that completed it.
	Captures map[string][]string

	// Warnings holds non-fatal conditions, such as
	// *DegradedModeError.
	Warnings []error

	// Elapsed is the duration of the session.
	Elapsed time.Duration
}

// Run executes plan against p. It returns the observations made so far
// along with any error, so blocks captured before a failure are still
// available. p is killed before Run returns, on every path.
func (c *Controller) Run(p Process, plan Plan) (res *Result, err error) {
	defer func() {
		if kerr := p.Kill(); kerr != nil {
			c.logf("kill: %v", kerr)
		}
	}()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	r := transcript.NewReader(p.Output())
	defer r.Close()

	res = &Result{
		Blocks:   make(map[string]string),
		Selected: make(map[string]int),
		Captures: make(map[string][]string),
	}
	begin := time.Now()
	defer func() { res.Elapsed = time.Since(begin) }()

	for _, st := range plan {
		if err := c.runStage(r, st, res, begin); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Controller) runStage(r *transcript.Reader, st Stage, res *Result, begin time.Time) error {
	start := time.Now()
	deadline := start.Add(st.Timeout)
	// Only capture stages need the lines they skip over.
	var block []string
	for {
		l, err := r.Next(deadline)
		if err == transcript.ErrTimeout {
			return &StageTimeoutError{
				Stage:   st.Name,
				Markers: st.Markers,
				Timeout: st.Timeout,
				Elapsed: time.Since(start),
				Session: time.Since(begin),
			}
		}
		if err != nil {
			return &PrematureExitError{
				Stage:   st.Name,
				Markers: st.Markers,
				Elapsed: time.Since(start),
				Session: time.Since(begin),
				Err:     err,
			}
		}
		if c.Transcript != nil {
			fmt.Fprintln(c.Transcript, l.Text)
		}

		idx, caps := -1, []string(nil)
		for i, m := range st.Markers {
			if sub, ok := m.Match(l.Text); ok {
				idx, caps = i, sub
				break
			}
		}
		if idx < 0 {
			if st.Action == Capture {
				block = append(block, l.Text)
			}
			continue
		}

		m := st.Markers[idx]
		c.logf("[%v] %s: matched %s at line %d", time.Since(begin).Round(time.Second), st.Name, m.Name, l.Seq)
		switch st.Action {
		case Capture:
			text := strings.Join(block, "\n")
			res.Blocks[st.Block] = text
			if c.Sink != nil {
				if err := c.Sink.AppendBlock(st.Block, text); err != nil {
					return fmt.Errorf("stage %s: saving %s block: %w", st.Name, st.Block, err)
				}
			}
		case Select:
			res.Selected[st.Name] = idx
		}
		if len(caps) > 0 {
			res.Captures[st.Name] = caps
		}
		if m.Degraded {
			w := &DegradedModeError{Stage: st.Name, Marker: m, Line: l.Seq}
			res.Warnings = append(res.Warnings, w)
			c.logf("warning: %v", w)
		}
		return nil
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
	}
}
