// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transcript reads the merged console output of a running
// process as a sequence of numbered text lines.
//
// Reads are always bounded: every call to Reader.Next carries a
// deadline, and a read that outlives it reports ErrTimeout rather
// than returning fewer lines. The end of the stream is reported as
// io.EOF (or the underlying read error) and is distinct from a
// timeout.
package transcript

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrTimeout is returned by Next when the deadline passes before a
// complete line is available.
var ErrTimeout = errors.New("transcript: read timed out")

var errNoDeadline = errors.New("transcript: read without deadline")

// maxLine bounds the length of a single console line.
const maxLine = 1 << 20

// A Line is a single line of console output.
type Line struct {
	// Seq is the 1-based position of the line in the stream.
	Seq int
	// Text is the line without its terminating newline or carriage
	// return. Bytes that are not valid UTF-8 are replaced by U+FFFD.
	Text string
}

// A Reader is a line source over an output stream.
//
// The stream is scanned by a background goroutine so that Next can
// give up on a deadline. A Reader is not restartable: once its stream
// has ended, a new Reader must be attached to a new stream.
type Reader struct {
	lines chan Line
	quit  chan struct{}
	once  sync.Once

	// err is set by the scanner before lines is closed.
	err error
	// eof is set once Next has observed the closed channel.
	eof bool
}

// NewReader starts reading lines from r.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{
		lines: make(chan Line),
		quit:  make(chan struct{}),
	}
	go rd.scan(r)
	return rd
}

func (r *Reader) scan(ior io.Reader) {
	defer close(r.lines)
	s := bufio.NewScanner(transform.NewReader(ior, unicode.UTF8.NewDecoder()))
	s.Buffer(make([]byte, 0, 64<<10), maxLine)
	seq := 0
	for s.Scan() {
		seq++
		l := Line{Seq: seq, Text: strings.TrimSuffix(s.Text(), "\r")}
		select {
		case r.lines <- l:
		case <-r.quit:
			return
		}
	}
	r.err = s.Err()
}

// Next returns the next line of output. It blocks until a line is
// available, the stream ends, or deadline passes. At the end of the
// stream it returns io.EOF, or the error that ended the stream.
// A zero deadline is an error: reads are never unbounded.
func (r *Reader) Next(deadline time.Time) (Line, error) {
	if deadline.IsZero() {
		return Line{}, errNoDeadline
	}
	if r.eof {
		return Line{}, r.endErr()
	}
	wait := time.Until(deadline)
	if wait <= 0 {
		// Prefer a line that is already waiting over a timeout.
		select {
		case l, ok := <-r.lines:
			return r.recv(l, ok)
		default:
			return Line{}, ErrTimeout
		}
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case l, ok := <-r.lines:
		return r.recv(l, ok)
	case <-t.C:
		return Line{}, ErrTimeout
	}
}

func (r *Reader) recv(l Line, ok bool) (Line, error) {
	if !ok {
		r.eof = true
		return Line{}, r.endErr()
	}
	return l, nil
}

func (r *Reader) endErr() error {
	if r.err != nil {
		return r.err
	}
	return io.EOF
}

// Close stops the background scanner. Lines not yet read are
// discarded. Close does not close the underlying stream; the scanner
// exits once its pending read returns.
func (r *Reader) Close() {
	r.once.Do(func() { close(r.quit) })
}
