// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vmopsfmt reads and writes vmops benchmark results.
//
// Results arrive in two shapes. The guest's console narrative
// announces each thread's start and end and closes every benchmark run
// with a summary line; Reader turns that narrative into checked Runs.
// The guest also prints delimited CSV blocks, which DecodeCSVBlock and
// DecodeLatencyBlock turn into rows. Both feed the persisted throughput
// and latency tables, read and written by the Read* and Write*
// functions. Every CSV form has a declared column set; a header that
// does not match is a *SchemaError.
package vmopsfmt

// A ThroughputRecord is one thread's result in one benchmark run. It is
// the row type of the throughput table.
type ThroughputRecord struct {
	// Config is the configuration label or benchmark name.
	Config string
	Cores  int
	Thread int
	// Ops is the number of operations the thread completed.
	Ops int64
	// Runtime is the thread's run time in milliseconds.
	Runtime float64

	// MemSize and PageSize are only known for records derived from
	// guest blocks. They are not stored in the throughput table.
	MemSize  int64
	PageSize string
}

// A BlockRow is one row of a guest throughput block.
type BlockRow struct {
	Thread    int
	Benchmark string
	Core      int
	Cores     int
	MemSize   int64
	Duration  float64 // milliseconds
	Ops       int64
}

// Record returns the throughput record for r.
func (r BlockRow) Record() ThroughputRecord {
	return ThroughputRecord{
		Config:  r.Benchmark,
		Cores:   r.Cores,
		Thread:  r.Thread,
		Ops:     r.Ops,
		Runtime: r.Duration,
		MemSize: r.MemSize,
	}
}

// A LatencySample is one row of a guest latency block: the latency of
// one measured operation.
type LatencySample struct {
	Thread    int
	Benchmark string
	Cores     int
	MemSize   int64
	Elapsed   int64 // time since the thread started, in cycles
	Ops       int64 // operations completed when the sample was taken
	Latency   float64
}

// A LatencySummary is one row of the latency table: the latency
// percentiles of one benchmark on one core count.
//
// Benchmark and Cores form the row's key.
type LatencySummary struct {
	GitRev    string
	Benchmark string
	Cores     int
	MemSize   int64

	P1, P25, P50, P75, P99, P999, P100 float64

	// OS names the platform the samples were taken on.
	OS string
}
