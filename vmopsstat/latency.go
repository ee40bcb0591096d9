// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmopsstat

import (
	"sort"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"vmops.dev/lab/vmopsfmt"
)

// Quantiles are the latency quantiles of a LatencySummary, in field
// order.
var Quantiles = []float64{0.01, 0.25, 0.50, 0.75, 0.99, 0.999, 1}

// A LatencyKey identifies a row of the latency table.
type LatencyKey struct {
	Benchmark string
	Cores     int
}

// KeyOf returns the key of s.
func KeyOf(s vmopsfmt.LatencySummary) LatencyKey {
	return LatencyKey{s.Benchmark, s.Cores}
}

// BaseBenchmark returns the benchmark family of name, its prefix before
// the first "-".
func BaseBenchmark(name string) string {
	base, _, _ := strings.Cut(name, "-")
	return base
}

// SummarizeLatency computes one latency summary per benchmark family
// and core count in samples, in order of first appearance. Each
// summary is tagged with gitRev and platform and takes its memory size
// from the first sample of its group.
func SummarizeLatency(samples []vmopsfmt.LatencySample, gitRev, platform string) []vmopsfmt.LatencySummary {
	type group struct {
		key     LatencyKey
		memSize int64
		xs      []float64
	}
	idx := make(map[LatencyKey]int)
	var groups []*group
	for _, s := range samples {
		k := LatencyKey{BaseBenchmark(s.Benchmark), s.Cores}
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, &group{key: k, memSize: s.MemSize})
		}
		groups[i].xs = append(groups[i].xs, s.Latency)
	}

	out := make([]vmopsfmt.LatencySummary, 0, len(groups))
	for _, g := range groups {
		sort.Float64s(g.xs)
		sample := stats.Sample{Xs: g.xs, Sorted: true}
		var q [7]float64
		for i, p := range Quantiles {
			q[i] = sample.Quantile(p)
		}
		out = append(out, vmopsfmt.LatencySummary{
			GitRev:    gitRev,
			Benchmark: g.key.Benchmark,
			Cores:     g.key.Cores,
			MemSize:   g.memSize,
			P1:        q[0],
			P25:       q[1],
			P50:       q[2],
			P75:       q[3],
			P99:       q[4],
			P999:      q[5],
			P100:      q[6],
			OS:        platform,
		})
	}
	return out
}

// A LatencyTable is the ordered contents of the latency table.
type LatencyTable struct {
	Rows []vmopsfmt.LatencySummary
}

// Lookup returns the row with key k.
func (t *LatencyTable) Lookup(k LatencyKey) (vmopsfmt.LatencySummary, bool) {
	for _, r := range t.Rows {
		if KeyOf(r) == k {
			return r, true
		}
	}
	return vmopsfmt.LatencySummary{}, false
}

// Upsert replaces the row with the same key as s, keeping its
// position, or appends s if there is none. It reports whether a row
// was replaced.
func (t *LatencyTable) Upsert(s vmopsfmt.LatencySummary) (replaced bool) {
	k := KeyOf(s)
	for i, r := range t.Rows {
		if KeyOf(r) == k {
			t.Rows[i] = s
			return true
		}
	}
	t.Rows = append(t.Rows, s)
	return false
}
