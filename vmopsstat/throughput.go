// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vmopsstat aggregates vmops benchmark records into summary
// views: throughput over core counts and latency percentiles.
//
// Aggregate views are recomputed from records on every pass; records
// are never modified.
package vmopsstat

import (
	"cmp"
	"slices"
	"strings"

	"vmops.dev/lab/vmopsfmt"
)

// msToSec converts the millisecond run times of records to seconds.
const msToSec = 0.001

// Throughput returns the throughput in operations per second of ops
// operations completed in runtimeMS milliseconds. A zero run time has
// a throughput of 0.
func Throughput(ops int64, runtimeMS float64) float64 {
	if runtimeMS == 0 {
		return 0
	}
	return float64(ops) / (runtimeMS * msToSec)
}

// GroupBy selects the optional dimensions of a throughput aggregation.
// Records are always grouped by core count and configuration.
type GroupBy struct {
	MemSize  bool
	PageSize bool

	// BaseName groups configurations by their name up to the first
	// ",", which drops benchmark option suffixes.
	BaseName bool
}

// A ThroughputKey identifies one group of throughput records.
// Dimensions not selected by the GroupBy are zero.
type ThroughputKey struct {
	Config   string
	Cores    int
	MemSize  int64
	PageSize string
}

func (g GroupBy) key(r vmopsfmt.ThroughputRecord) ThroughputKey {
	k := ThroughputKey{Config: r.Config, Cores: r.Cores}
	if g.BaseName {
		k.Config, _, _ = strings.Cut(k.Config, ",")
	}
	if g.MemSize {
		k.MemSize = r.MemSize
	}
	if g.PageSize {
		k.PageSize = r.PageSize
	}
	return k
}

// A ThroughputRow is the aggregate of one group of throughput records.
type ThroughputRow struct {
	ThroughputKey

	// Ops is the total number of operations of all threads.
	Ops int64
	// Threads is the number of records in the group.
	Threads int
	// Runtime is the longest thread run time, in milliseconds.
	// Threads run concurrently, so this is the wall-clock time.
	Runtime float64
	// Throughput is Ops per second of Runtime.
	Throughput float64
}

// Record returns r as a single record with r's key, so that a set of
// rows can be aggregated again.
func (r ThroughputRow) Record() vmopsfmt.ThroughputRecord {
	return vmopsfmt.ThroughputRecord{
		Config:   r.Config,
		Cores:    r.Cores,
		Ops:      r.Ops,
		Runtime:  r.Runtime,
		MemSize:  r.MemSize,
		PageSize: r.PageSize,
	}
}

// AggregateThroughput groups recs by core count, configuration, and the
// dimensions selected by g. Rows are sorted by configuration, then by
// core count, then by memory and page size.
func AggregateThroughput(recs []vmopsfmt.ThroughputRecord, g GroupBy) []ThroughputRow {
	idx := make(map[ThroughputKey]int)
	var rows []ThroughputRow
	for _, r := range recs {
		k := g.key(r)
		i, ok := idx[k]
		if !ok {
			i = len(rows)
			idx[k] = i
			rows = append(rows, ThroughputRow{ThroughputKey: k})
		}
		row := &rows[i]
		row.Ops += r.Ops
		row.Threads++
		row.Runtime = max(row.Runtime, r.Runtime)
	}
	for i := range rows {
		rows[i].Throughput = Throughput(rows[i].Ops, rows[i].Runtime)
	}
	slices.SortStableFunc(rows, func(a, b ThroughputRow) int {
		if c := strings.Compare(a.Config, b.Config); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Cores, b.Cores); c != 0 {
			return c
		}
		if c := cmp.Compare(a.MemSize, b.MemSize); c != 0 {
			return c
		}
		return strings.Compare(a.PageSize, b.PageSize)
	})
	return rows
}

// Configs returns the distinct configurations of rows in order of first
// appearance.
func Configs(rows []ThroughputRow) []string {
	var out []string
	for _, r := range rows {
		if !slices.Contains(out, r.Config) {
			out = append(out, r.Config)
		}
	}
	return out
}
