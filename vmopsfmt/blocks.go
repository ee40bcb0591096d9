// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmopsfmt

import (
	"bufio"
	"io"
	"strings"
)

// ScanBlocks returns the blocks of a saved transcript delimited by
// lines containing begin and end. Each block holds the lines strictly
// between its markers, joined by newlines. Text outside the markers is
// discarded, as is a final block with no end marker.
func ScanBlocks(r io.Reader, begin, end string) ([]string, error) {
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	var blocks []string
	var cur []string
	in := false
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		switch {
		case !in && strings.Contains(line, begin):
			in, cur = true, nil
		case in && strings.Contains(line, end):
			blocks = append(blocks, strings.Join(cur, "\n"))
			in = false
		case in:
			cur = append(cur, line)
		}
	}
	return blocks, s.Err()
}
