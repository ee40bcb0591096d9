// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmopsfmt

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// A Reader reads benchmark runs from the guest console narrative.
//
// Its API is modeled on bufio.Scanner. Lines that are not part of the
// narrative are ignored, so a Reader can consume a raw session
// transcript.
type Reader struct {
	s        *bufio.Scanner
	fileName string
	line     int
	err      error

	config string

	// Threads of the run in progress.
	started map[int]started
	ended   []Thread // in order of their end announcement
	endIdx  map[int]int

	run *Run
}

type started struct {
	runtime int64
	line    int
}

// A Run is one closed benchmark run.
type Run struct {
	Config   string
	Cores    int
	TotalOps int64
	// Threads holds the run's threads in the order they ended.
	Threads []Thread

	// FileName and Line locate the run's done announcement.
	FileName string
	Line     int
}

// A Thread is one thread's contribution to a Run.
type Thread struct {
	ID      int
	Ops     int64
	Runtime int64 // milliseconds
}

// Records returns one throughput record per thread of r.
func (r *Run) Records() []ThroughputRecord {
	recs := make([]ThroughputRecord, len(r.Threads))
	for i, t := range r.Threads {
		recs[i] = ThroughputRecord{
			Config:  r.Config,
			Cores:   r.Cores,
			Thread:  t.ID,
			Ops:     t.Ops,
			Runtime: float64(t.Runtime),
		}
	}
	return recs
}

// An InconsistentRunError reports a benchmark run whose thread
// announcements do not add up. It means the transcript lost lines or
// the benchmark harness is broken, so it is fatal for the Reader.
type InconsistentRunError struct {
	FileName string
	Line     int
	Cores    int
	TotalOps int64
	SumOps   int64
	// Runtimes holds the distinct thread run times, in milliseconds.
	Runtimes []int64
	Msg      string
}

func (e *InconsistentRunError) Error() string {
	return fmt.Sprintf("%s:%d: inconsistent run (ncores=%d, total ops = %d): %s", e.FileName, e.Line, e.Cores, e.TotalOps, e.Msg)
}

// Narrative line shapes.
const benchmarkStart = "+ VMOPS Benchmark"

var (
	configRE  = regexp.MustCompile(`\+ VMOPS Selecting the (.+) configuration\.`)
	startedRE = regexp.MustCompile(`thread (\d+) started\. Running for (\d+)`)
	endedRE   = regexp.MustCompile(`thread (\d+) ended\. (\d+)`)
	doneRE    = regexp.MustCompile(`\+ VMOPS Benchmark done\. ncores=(\d+), total ops = (\d+)`)
)

// DefaultConfig is the configuration label of runs that precede any
// configuration announcement.
const DefaultConfig = "unknown"

// NewReader constructs a reader for the console narrative in r.
// fileName is used in error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName string) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	return &Reader{
		s:        s,
		fileName: fileName,
		config:   DefaultConfig,
		started:  make(map[int]started),
		endIdx:   make(map[int]int),
	}
}

// Scan advances to the next closed run, which is then available
// through Run. It returns false at the end of input or on error.
// After Scan returns false, Err reports any error; an inconsistent run
// is an *InconsistentRunError.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.s.Scan() {
		r.line++
		text := strings.TrimSpace(r.s.Text())
		if m := doneRE.FindStringSubmatch(text); m != nil {
			cores, err1 := strconv.Atoi(m[1])
			total, err2 := strconv.ParseInt(m[2], 10, 64)
			if err1 != nil || err2 != nil {
				r.err = r.syntaxError("bad benchmark done line")
				return false
			}
			run, err := r.close(cores, total)
			if err != nil {
				r.err = err
				return false
			}
			r.run = run
			return true
		}
		if m := configRE.FindStringSubmatch(text); m != nil {
			r.config = strings.ReplaceAll(m[1], " ", "-")
			continue
		}
		if text == benchmarkStart {
			r.reset()
			continue
		}
		if m := startedRE.FindStringSubmatch(text); m != nil {
			id, err1 := strconv.Atoi(m[1])
			ms, err2 := strconv.ParseInt(m[2], 10, 64)
			if err1 != nil || err2 != nil {
				r.err = r.syntaxError("bad thread start line")
				return false
			}
			r.started[id] = started{ms, r.line}
			continue
		}
		if m := endedRE.FindStringSubmatch(text); m != nil {
			id, err1 := strconv.Atoi(m[1])
			ops, err2 := strconv.ParseInt(m[2], 10, 64)
			if err1 != nil || err2 != nil {
				r.err = r.syntaxError("bad thread end line")
				return false
			}
			if i, ok := r.endIdx[id]; ok {
				r.ended[i].Ops = ops
			} else {
				r.endIdx[id] = len(r.ended)
				r.ended = append(r.ended, Thread{ID: id, Ops: ops})
			}
		}
	}
	r.err = r.s.Err()
	return false
}

// Run returns the run most recently read by Scan. The returned Run is
// owned by the caller.
func (r *Reader) Run() *Run {
	return r.run
}

// Err returns the first error encountered by the Reader.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) reset() {
	r.started = make(map[int]started)
	r.ended = nil
	r.endIdx = make(map[int]int)
}

func (r *Reader) syntaxError(msg string) *SyntaxError {
	return &SyntaxError{r.fileName, r.line, msg}
}

// close checks and closes the run in progress.
func (r *Reader) close(cores int, total int64) (*Run, error) {
	defer r.reset()

	inconsistent := func(sum int64, runtimes []int64, format string, args ...any) error {
		return &InconsistentRunError{
			FileName: r.fileName,
			Line:     r.line,
			Cores:    cores,
			TotalOps: total,
			SumOps:   sum,
			Runtimes: runtimes,
			Msg:      fmt.Sprintf(format, args...),
		}
	}

	run := &Run{Config: r.config, Cores: cores, TotalOps: total, FileName: r.fileName, Line: r.line}
	var sum int64
	var runtimes []int64
	for _, t := range r.ended {
		st, ok := r.started[t.ID]
		if !ok {
			return nil, inconsistent(0, nil, "thread %d ended without starting", t.ID)
		}
		t.Runtime = st.runtime
		sum += t.Ops
		if !slices.Contains(runtimes, st.runtime) {
			runtimes = append(runtimes, st.runtime)
		}
		run.Threads = append(run.Threads, t)
	}
	var missing []int
	for id := range r.started {
		if _, ok := r.endIdx[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, inconsistent(sum, runtimes, "thread %d started on line %d but never ended", missing[0], r.started[missing[0]].line)
	}
	if sum != total {
		return nil, inconsistent(sum, runtimes, "threads sum to %d ops", sum)
	}
	if len(runtimes) > 1 {
		return nil, inconsistent(sum, runtimes, "threads ran for different durations %v ms", runtimes)
	}
	return run, nil
}
