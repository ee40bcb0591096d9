// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report persists and renders vmops results.
//
// Captured guest blocks and result tables are plain CSV files that
// accumulate across sessions: throughput rows are only ever appended,
// while latency rows are replaced by key under an exclusive lock.
// The Write functions render aggregate views as text, HTML, or charts.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlockFiles saves captured blocks by appending them verbatim to one
// file per block kind. It implements session.BlockSink.
type BlockFiles struct {
	Dir string
	// Names maps a block kind to its file name in Dir.
	Names map[string]string
}

// Path returns the file that receives blocks of the given kind.
func (b *BlockFiles) Path(kind string) (string, error) {
	name, ok := b.Names[kind]
	if !ok {
		return "", fmt.Errorf("no file for %s blocks", kind)
	}
	return filepath.Join(b.Dir, name), nil
}

// AppendBlock appends block to the file for kind, creating it if
// needed. Empty blocks leave the file untouched.
func (b *BlockFiles) AppendBlock(kind, block string) error {
	path, err := b.Path(kind)
	if err != nil {
		return err
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(block + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
