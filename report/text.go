// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"io"

	"github.com/aclements/go-gg/table"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

// WriteThroughputText writes rows as an aligned text table with one
// section per configuration. g selects the optional columns and should
// be the GroupBy the rows were aggregated with.
func WriteThroughputText(w io.Writer, rows []vmopsstat.ThroughputRow, g vmopsstat.GroupBy) error {
	if len(rows) == 0 {
		return nil
	}
	n := len(rows)
	var (
		configs   = make([]string, n)
		cores     = make([]int, n)
		memSizes  = make([]int64, n)
		pageSizes = make([]string, n)
		threads   = make([]int, n)
		ops       = make([]int64, n)
		runtimes  = make([]float64, n)
		tput      = make([]float64, n)
	)
	for i, r := range rows {
		configs[i] = r.Config
		cores[i] = r.Cores
		memSizes[i] = r.MemSize
		pageSizes[i] = r.PageSize
		threads[i] = r.Threads
		ops[i] = r.Ops
		runtimes[i] = r.Runtime
		tput[i] = r.Throughput
	}

	var b table.Builder
	formats := []string{"%v"}
	b.Add("config", configs).Add("ncores", cores)
	if g.MemSize {
		b.Add("memsize", memSizes)
		formats = append(formats, "%v")
	}
	if g.PageSize {
		b.Add("pagesize", pageSizes)
		formats = append(formats, "%v")
	}
	b.Add("threads", threads).Add("ops", ops).Add("runtime_ms", runtimes).Add("ops/s", tput)
	formats = append(formats, "%v", "%v", "%.3f", "%.0f")

	grouped := table.Remove(table.GroupBy(b.Done(), "config"), "config")
	return table.Fprint(w, grouped, formats...)
}

// WriteLatencyText writes rows as an aligned text table.
func WriteLatencyText(w io.Writer, rows []vmopsfmt.LatencySummary) error {
	if len(rows) == 0 {
		return nil
	}
	return table.Fprint(w, table.TableFromStructs(rows))
}
