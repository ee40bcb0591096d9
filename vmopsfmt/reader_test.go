// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmopsfmt

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readAll(t *testing.T, data string) ([]ThroughputRecord, error) {
	t.Helper()
	r := NewReader(strings.NewReader(data), "test")
	var out []ThroughputRecord
	for r.Scan() {
		out = append(out, r.Run().Records()...)
	}
	return out, r.Err()
}

func TestReaderSingleRun(t *testing.T) {
	const data = `+ VMOPS Benchmark
thread 0 started. Running for 20000 ms.
thread 0 ended. 18382031 map + unmaps
+ VMOPS Benchmark done. ncores=1, total ops = 18382031
`
	got, err := readAll(t, data)
	if err != nil {
		t.Fatal(err)
	}
	want := []ThroughputRecord{{Config: "unknown", Cores: 1, Thread: 0, Ops: 18382031, Runtime: 20000}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReaderRuns(t *testing.T) {
	const data = `booting...
+ VMOPS Benchmark
+ VMOPS Selecting the independent configuration.
thread 1 started. Running for 1000 ms.
thread 0 started. Running for 1000 ms.
some kernel noise
thread 1 ended. 70 map + unmaps
thread 0 ended. 30 map + unmaps
+ VMOPS Benchmark done. ncores=2, total ops = 100
+ VMOPS Benchmark
+ VMOPS Selecting the shared isolated configuration.
thread 0 started. Running for 500 ms.
thread 0 ended. 5 map + unmaps
+ VMOPS Benchmark done. ncores=1, total ops = 5
`
	r := NewReader(strings.NewReader(data), "test")
	var runs []*Run
	for r.Scan() {
		runs = append(runs, r.Run())
	}
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	want := []*Run{
		{Config: "independent", Cores: 2, TotalOps: 100, Threads: []Thread{{1, 70, 1000}, {0, 30, 1000}}, FileName: "test", Line: 9},
		{Config: "shared-isolated", Cores: 1, TotalOps: 5, Threads: []Thread{{0, 5, 500}}, FileName: "test", Line: 14},
	}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestReaderInconsistent(t *testing.T) {
	for _, test := range []struct {
		name, data, msg string
	}{
		{
			"sum",
			"thread 0 started. Running for 10 ms.\nthread 0 ended. 5 ops\n+ VMOPS Benchmark done. ncores=1, total ops = 6\n",
			"threads sum to 5 ops",
		},
		{
			"durations",
			"thread 0 started. Running for 10 ms.\nthread 1 started. Running for 20 ms.\nthread 0 ended. 1 ops\nthread 1 ended. 1 ops\n+ VMOPS Benchmark done. ncores=2, total ops = 2\n",
			"threads ran for different durations [10 20] ms",
		},
		{
			"no start",
			"thread 3 ended. 1 ops\n+ VMOPS Benchmark done. ncores=1, total ops = 1\n",
			"thread 3 ended without starting",
		},
		{
			"no end",
			"thread 0 started. Running for 10 ms.\nthread 1 started. Running for 10 ms.\nthread 0 ended. 1 ops\n+ VMOPS Benchmark done. ncores=2, total ops = 1\n",
			"thread 1 started on line 2 but never ended",
		},
		{
			// The section start discards the first thread.
			"reset",
			"thread 0 started. Running for 10 ms.\nthread 0 ended. 1 ops\n+ VMOPS Benchmark\n+ VMOPS Benchmark done. ncores=1, total ops = 1\n",
			"threads sum to 0 ops",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			recs, err := readAll(t, test.data)
			var ie *InconsistentRunError
			if !errors.As(err, &ie) {
				t.Fatalf("got records %v, error %v; want *InconsistentRunError", recs, err)
			}
			if ie.Msg != test.msg {
				t.Errorf("got message %q, want %q", ie.Msg, test.msg)
			}
			if !strings.HasPrefix(err.Error(), "test:") {
				t.Errorf("error %q lacks position", err)
			}
		})
	}
}

func TestReaderStopsAtInconsistentRun(t *testing.T) {
	const data = `thread 0 started. Running for 10 ms.
thread 0 ended. 1 ops
+ VMOPS Benchmark done. ncores=1, total ops = 2
thread 0 started. Running for 10 ms.
thread 0 ended. 1 ops
+ VMOPS Benchmark done. ncores=1, total ops = 1
`
	r := NewReader(strings.NewReader(data), "test")
	if r.Scan() {
		t.Fatalf("Scan succeeded with run %+v", r.Run())
	}
	if r.Scan() {
		t.Fatalf("Scan succeeded after error")
	}
	var ie *InconsistentRunError
	if !errors.As(r.Err(), &ie) || ie.Line != 3 || ie.SumOps != 1 || ie.TotalOps != 2 {
		t.Errorf("Err() = %#v", r.Err())
	}
}

func TestReaderEmpty(t *testing.T) {
	recs, err := readAll(t, "no benchmark output here\n")
	if err != nil || len(recs) != 0 {
		t.Errorf("got %v, %v; want no records", recs, err)
	}
}
