// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

// AppendThroughput appends recs to the throughput table at path. The
// header is written only when the file is created or empty.
func AppendThroughput(path string, recs []vmopsfmt.ThroughputRecord) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if err := vmopsfmt.WriteThroughputTable(f, recs, st.Size() == 0); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadThroughput reads the throughput table at path.
func ReadThroughput(path string) ([]vmopsfmt.ThroughputRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return vmopsfmt.ReadThroughputTable(f, path)
}

// ReadLatency reads the latency table at path. A missing file is an
// empty table.
func ReadLatency(path string) (*vmopsstat.LatencyTable, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return new(vmopsstat.LatencyTable), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := vmopsfmt.ReadLatencyTable(f, path)
	if err != nil {
		return nil, err
	}
	return &vmopsstat.LatencyTable{Rows: rows}, nil
}

// LockWait bounds how long UpsertLatency waits for another process to
// release the latency table.
var LockWait = 30 * time.Second

// An UpsertResult counts the rows UpsertLatency changed.
type UpsertResult struct {
	Replaced, Appended int
}

// UpsertLatency merges summaries into the latency table at path:
// each summary replaces the row with its key or is appended. The
// read-modify-write holds an exclusive lock on path+".lock", and the
// new table is renamed into place so readers never see a partial file.
func UpsertLatency(path string, summaries []vmopsfmt.LatencySummary) (res UpsertResult, err error) {
	unlock, err := lock(path+".lock", LockWait)
	if err != nil {
		return res, err
	}
	defer func() {
		if uerr := unlock(); err == nil {
			err = uerr
		}
	}()

	tab, err := ReadLatency(path)
	if err != nil {
		return res, err
	}
	for _, s := range summaries {
		if tab.Upsert(s) {
			res.Replaced++
		} else {
			res.Appended++
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return res, err
	}
	defer os.Remove(tmp.Name())
	if err := vmopsfmt.WriteLatencyTable(tmp, tab.Rows, true); err != nil {
		tmp.Close()
		return res, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return res, err
	}
	return res, os.Rename(tmp.Name(), path)
}

// lock takes an advisory lock on the file at path, waiting up to wait
// for another holder to release it. The lock dies with its holder, so
// a lock file left behind by a killed process does not block later
// callers. The holder's pid is recorded in the file for the error
// reported to waiters.
func lock(path string, wait time.Duration) (unlock func() error, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if !ok {
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		holder := "another process"
		if data, err := os.ReadFile(path); err == nil {
			if pid := strings.TrimSpace(string(data)); pid != "" {
				holder = "process " + pid
			}
		}
		return nil, fmt.Errorf("%s is held by %s after %v", path, holder, wait)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0666); err != nil {
		fl.Unlock()
		return nil, err
	}
	return fl.Unlock, nil
}
