// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestBlockFiles(t *testing.T) {
	dir := t.TempDir()
	b := &BlockFiles{Dir: dir, Names: map[string]string{"throughput": "results.csv"}}
	const block = "thread_id,benchmark,core,ncores,memsize,duration,operations\n0,b,0,1,4096,1.000,5"
	for i := 0; i < 2; i++ {
		if err := b.AppendBlock("throughput", block+"\n"); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.AppendBlock("throughput", "  \n"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "results.csv")
	if got, want := readFile(t, path), block+"\n"+block+"\n"; got != want {
		t.Errorf("file contents:\n%s\nwant:\n%s", got, want)
	}
	// The appended blocks still decode as one table.
	f, _ := os.Open(path)
	defer f.Close()
	rows, err := vmopsfmt.DecodeCSVBlock(f, path)
	if err != nil || len(rows) != 2 {
		t.Errorf("decoded %v, %v", rows, err)
	}

	if err := b.AppendBlock("latency", "x"); err == nil {
		t.Errorf("AppendBlock of unconfigured kind succeeded")
	}
}

func TestAppendThroughput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tput.csv")
	r1 := []vmopsfmt.ThroughputRecord{{Config: "independent", Cores: 1, Thread: 0, Ops: 10, Runtime: 1000}}
	r2 := []vmopsfmt.ThroughputRecord{{Config: "independent", Cores: 2, Thread: 1, Ops: 20, Runtime: 1000}}
	if err := AppendThroughput(path, r1); err != nil {
		t.Fatal(err)
	}
	if err := AppendThroughput(path, r2); err != nil {
		t.Fatal(err)
	}
	const want = "config,ncores,tid,tput,runtime\nindependent,1,0,10,1000\nindependent,2,1,20,1000\n"
	if got := readFile(t, path); got != want {
		t.Errorf("table:\n%s\nwant:\n%s", got, want)
	}
	recs, err := ReadThroughput(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(append(r1, r2...), recs); diff != "" {
		t.Errorf("read back mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertLatency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barrelfish_latency_percentiles.csv")
	a := vmopsfmt.LatencySummary{GitRev: "r1", Benchmark: "mapunmap", Cores: 1, P50: 1, OS: "barrelfish"}
	b := vmopsfmt.LatencySummary{GitRev: "r1", Benchmark: "mapunmap", Cores: 2, P50: 2, OS: "barrelfish"}

	res, err := UpsertLatency(path, []vmopsfmt.LatencySummary{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if res != (UpsertResult{Appended: 2}) {
		t.Errorf("first upsert = %+v", res)
	}

	a2 := a
	a2.GitRev, a2.P50 = "r2", 5
	res, err = UpsertLatency(path, []vmopsfmt.LatencySummary{a2})
	if err != nil {
		t.Fatal(err)
	}
	if res != (UpsertResult{Replaced: 1}) {
		t.Errorf("second upsert = %+v", res)
	}

	tab, err := ReadLatency(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []vmopsfmt.LatencySummary{a2, b}; !reflect.DeepEqual(tab.Rows, want) {
		t.Errorf("rows = %+v, want %+v", tab.Rows, want)
	}
	if ok, err := flock.New(path + ".lock").TryLock(); err != nil || !ok {
		t.Errorf("lock still held after upsert: %v, %v", ok, err)
	}
	matches, _ := filepath.Glob(path + ".tmp*")
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestUpsertLatencyLocked(t *testing.T) {
	defer func(old time.Duration) { LockWait = old }(LockWait)
	LockWait = 100 * time.Millisecond

	path := filepath.Join(t.TempDir(), "lat.csv")
	holder := flock.New(path + ".lock")
	if err := holder.Lock(); err != nil {
		t.Fatal(err)
	}
	defer holder.Unlock()
	if err := os.WriteFile(path+".lock", []byte("4242\n"), 0666); err != nil {
		t.Fatal(err)
	}
	_, err := UpsertLatency(path, []vmopsfmt.LatencySummary{{Benchmark: "x", Cores: 1}})
	if err == nil || !strings.Contains(err.Error(), "held by process 4242") {
		t.Errorf("got %v, want lock error naming process 4242", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("table written despite lock: %v", err)
	}
}

func TestUpsertLatencyStaleLockFile(t *testing.T) {
	defer func(old time.Duration) { LockWait = old }(LockWait)
	LockWait = 200 * time.Millisecond

	// A lock file left by a process that died mid-upsert.
	path := filepath.Join(t.TempDir(), "lat.csv")
	if err := os.WriteFile(path+".lock", []byte("999999\n"), 0666); err != nil {
		t.Fatal(err)
	}
	s := vmopsfmt.LatencySummary{Benchmark: "x", Cores: 1}
	res, err := UpsertLatency(path, []vmopsfmt.LatencySummary{s})
	if err != nil {
		t.Fatalf("UpsertLatency: %v", err)
	}
	if res != (UpsertResult{Appended: 1}) {
		t.Errorf("upsert = %+v", res)
	}
	if got, want := strings.TrimSpace(readFile(t, path+".lock")), strconv.Itoa(os.Getpid()); got != want {
		t.Errorf("lock file names %q, want %q", got, want)
	}
}

func TestReadLatencyMissing(t *testing.T) {
	tab, err := ReadLatency(filepath.Join(t.TempDir(), "none.csv"))
	if err != nil || len(tab.Rows) != 0 {
		t.Errorf("got %v, %v; want empty table", tab, err)
	}
}

var testRows = []vmopsstat.ThroughputRow{
	{ThroughputKey: vmopsstat.ThroughputKey{Config: "independent", Cores: 1}, Ops: 100, Threads: 1, Runtime: 1000, Throughput: 100},
	{ThroughputKey: vmopsstat.ThroughputKey{Config: "independent", Cores: 2}, Ops: 300, Threads: 2, Runtime: 1000, Throughput: 300},
	{ThroughputKey: vmopsstat.ThroughputKey{Config: "shared", Cores: 1}, Ops: 0, Threads: 1, Runtime: 0, Throughput: 0},
}

func TestWriteThroughputText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteThroughputText(&buf, testRows, vmopsstat.GroupBy{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ncores", "ops/s", "-- /independent", "-- /shared", "1000.000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "memsize") {
		t.Errorf("output has ungrouped memsize column:\n%s", out)
	}
}

func TestWriteLatencyText(t *testing.T) {
	var buf bytes.Buffer
	rows := []vmopsfmt.LatencySummary{{GitRev: "abc", Benchmark: "mapunmap", Cores: 4, P50: 12.5, OS: "barrelfish"}}
	if err := WriteLatencyText(&buf, rows); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Benchmark", "P999", "mapunmap", "12.5", "barrelfish"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	lat := []vmopsfmt.LatencySummary{{Benchmark: "<b>", Cores: 4, OS: "barrelfish"}}
	if err := WriteHTML(&buf, "vmops results", testRows, lat); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<title>vmops results</title>", "<td class=\"name\">independent", "<td>300", "&lt;b&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestThroughputSeries(t *testing.T) {
	configs, series := ThroughputSeries(testRows, false)
	if !reflect.DeepEqual(configs, []string{"independent", "shared"}) || len(series[0]) != 2 || len(series[1]) != 1 {
		t.Errorf("linear: got %q %v", configs, series)
	}
	configs, series = ThroughputSeries(testRows, true)
	if !reflect.DeepEqual(configs, []string{"independent"}) || series[0][1].X != 2 || series[0][1].Y != 300 {
		t.Errorf("log: got %q %v", configs, series)
	}
}

func TestThroughputChart(t *testing.T) {
	dir := t.TempDir()
	for _, opts := range []ChartOptions{{Title: "linear"}, {Title: "log", LogScale: true}} {
		path := filepath.Join(dir, opts.Title+".png")
		if err := ThroughputChart(path, testRows, opts); err != nil {
			t.Fatalf("%s: %v", opts.Title, err)
		}
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Errorf("%s: chart not written: %v", opts.Title, err)
		}
	}
	svg := filepath.Join(dir, "chart.svg")
	if err := ThroughputChart(svg, testRows, ChartOptions{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(readFile(t, svg), "<svg") {
		t.Errorf("svg chart has no svg element")
	}
	if err := ThroughputChart(filepath.Join(dir, "empty.png"), nil, ChartOptions{}); err == nil {
		t.Errorf("chart of no rows succeeded")
	}
}
