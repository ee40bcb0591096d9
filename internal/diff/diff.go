// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff compares the text outputs of tests.
package diff

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Text returns a unified diff from want to got, or "" if they are equal.
// Without a diff command it falls back to a line-by-line cmp.Diff.
func Text(want, got string) string {
	if want == got {
		return ""
	}
	if _, err := exec.LookPath("diff"); err != nil {
		return lines(want, got)
	}
	dir, err := os.MkdirTemp("", "vmops-diff")
	if err != nil {
		return lines(want, got)
	}
	defer os.RemoveAll(dir)
	for name, text := range map[string]string{"want": want, "got": got} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0666); err != nil {
			return lines(want, got)
		}
	}

	cmd := exec.Command("diff", "-u", "want", "got")
	cmd.Dir = dir
	// diff exits 1 when the files differ.
	data, _ := cmd.CombinedOutput()
	if len(data) == 0 {
		return lines(want, got)
	}
	return string(data)
}

func lines(want, got string) string {
	return cmp.Diff(strings.SplitAfter(want, "\n"), strings.SplitAfter(got, "\n"))
}
