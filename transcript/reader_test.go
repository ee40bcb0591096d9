// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transcript

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

func readAll(t *testing.T, r *Reader) []Line {
	t.Helper()
	var out []Line
	for {
		l, err := r.Next(time.Now().Add(5 * time.Second))
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, l)
	}
}

func TestReader(t *testing.T) {
	for _, test := range []struct {
		name, input string
		want        []Line
	}{
		{"empty", "", nil},
		{"basic", "one\ntwo\n", []Line{{1, "one"}, {2, "two"}}},
		{"no final newline", "one\ntwo", []Line{{1, "one"}, {2, "two"}}},
		{"crlf", "boot\r\n\r\nready\r\n", []Line{{1, "boot"}, {2, ""}, {3, "ready"}}},
		{"invalid utf8", "a\xffb\n", []Line{{1, "a�b"}}},
	} {
		t.Run(test.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(test.input))
			defer r.Close()
			got := readAll(t, r)
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("got %q, want %q", got, test.want)
			}
			// EOF is sticky.
			if _, err := r.Next(time.Now().Add(time.Second)); err != io.EOF {
				t.Errorf("Next after EOF: got %v, want io.EOF", err)
			}
		})
	}
}

func TestReaderTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr)
	defer r.Close()

	start := time.Now()
	_, err := r.Next(start.Add(50 * time.Millisecond))
	if err != ErrTimeout {
		t.Fatalf("Next: got %v, want ErrTimeout", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond {
		t.Errorf("Next returned after %v, before the deadline", d)
	}

	// A timeout does not lose data that arrives later.
	go pw.Write([]byte("late\n"))
	l, err := r.Next(time.Now().Add(5 * time.Second))
	if err != nil || l.Text != "late" || l.Seq != 1 {
		t.Errorf("Next = %+v, %v; want {1 late}, nil", l, err)
	}
}

func TestReaderStreamError(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr)
	defer r.Close()

	boom := errors.New("boom")
	go func() {
		pw.Write([]byte("partial\n"))
		pw.CloseWithError(boom)
	}()
	if l, err := r.Next(time.Now().Add(5 * time.Second)); err != nil || l.Text != "partial" {
		t.Fatalf("Next = %+v, %v", l, err)
	}
	if _, err := r.Next(time.Now().Add(5 * time.Second)); err != boom {
		t.Errorf("Next: got %v, want %v", err, boom)
	}
}

func TestReaderNoDeadline(t *testing.T) {
	r := NewReader(strings.NewReader("x\n"))
	defer r.Close()
	if _, err := r.Next(time.Time{}); err == nil || err == io.EOF {
		t.Errorf("Next with zero deadline: got %v, want error", err)
	}
}
