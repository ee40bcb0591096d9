// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmopsfmt

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// A Schema is the declared column set of a CSV form. Columns may appear
// in any order, but all of them must be present and no others.
type Schema struct {
	Name    string
	Columns []string
}

// CSV forms.
var (
	ThroughputBlock = Schema{"throughput block", []string{"thread_id", "benchmark", "core", "ncores", "memsize", "duration", "operations"}}
	LatencyBlock    = Schema{"latency block", []string{"thread_id", "benchmark", "ncores", "memsize", "elapsed", "operations", "latency"}}
	ThroughputTable = Schema{"throughput table", []string{"config", "ncores", "tid", "tput", "runtime"}}
	LatencyTable    = Schema{"latency table", []string{"git_rev", "benchmark", "ncores", "memsize", "p1", "p25", "p50", "p75", "p99", "p999", "p100", "os"}}
)

// A SyntaxError represents a malformed line of a results file.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

// A SchemaError reports a CSV header that does not match its declared
// schema.
type SchemaError struct {
	FileName string
	Line     int
	Schema   string
	Missing  []string // declared columns absent from the header
	Unknown  []string // header columns not in the schema
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown columns "+strings.Join(e.Unknown, ", "))
	}
	return fmt.Sprintf("%s:%d: %s header: %s", e.FileName, e.Line, e.Schema, strings.Join(parts, "; "))
}

// A table decodes the rows of one CSV form.
type table struct {
	r        *csv.Reader
	fileName string
	schema   Schema
	header   []string
	col      map[string]int
	line     int
}

func newTable(r io.Reader, fileName string, schema Schema) *table {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &table{r: cr, fileName: fileName, schema: schema}
}

// next returns the next data row. It returns io.EOF at the end of
// input. The first record must be a header matching the schema;
// later copies of the header are skipped.
func (t *table) next() (*row, error) {
	for {
		rec, err := t.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &SyntaxError{t.fileName, perr.Line, perr.Err.Error()}
			}
			return nil, err
		}
		t.line, _ = t.r.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		if t.header == nil {
			if err := t.setHeader(rec); err != nil {
				return nil, err
			}
			continue
		}
		if slices.Equal(rec, t.header) {
			continue
		}
		if len(rec) != len(t.header) {
			return nil, t.syntaxError(fmt.Sprintf("have %d fields, want %d", len(rec), len(t.header)))
		}
		return &row{t: t, rec: rec}, nil
	}
}

func (t *table) setHeader(rec []string) error {
	col := make(map[string]int)
	var unknown []string
	for i, name := range rec {
		if !slices.Contains(t.schema.Columns, name) {
			unknown = append(unknown, name)
			continue
		}
		col[name] = i
	}
	var missing []string
	for _, name := range t.schema.Columns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 || len(unknown) > 0 {
		return &SchemaError{t.fileName, t.line, t.schema.Name, missing, unknown}
	}
	t.header = rec
	t.col = col
	return nil
}

func (t *table) syntaxError(msg string) *SyntaxError {
	return &SyntaxError{t.fileName, t.line, msg}
}

func isBlank(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

// A row is one data row of a table. Its accessors record the first
// conversion error, which err returns.
type row struct {
	t   *table
	rec []string
	bad error
}

func (r *row) str(name string) string {
	return r.rec[r.t.col[name]]
}

func (r *row) atoi(name string) int {
	v, err := strconv.Atoi(r.str(name))
	r.check(name, err)
	return v
}

func (r *row) parseInt(name string) int64 {
	v, err := strconv.ParseInt(r.str(name), 10, 64)
	r.check(name, err)
	return v
}

func (r *row) parseFloat(name string) float64 {
	v, err := strconv.ParseFloat(r.str(name), 64)
	r.check(name, err)
	return v
}

func (r *row) check(name string, err error) {
	if err != nil && r.bad == nil {
		r.bad = r.t.syntaxError(fmt.Sprintf("column %s: bad value %q", name, r.str(name)))
	}
}

func (r *row) err() error { return r.bad }

// decode reads all rows of r with schema, converting each with conv.
func decode[T any](r io.Reader, fileName string, schema Schema, conv func(*row) T) ([]T, error) {
	t := newTable(r, fileName, schema)
	var out []T
	for {
		rw, err := t.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		v := conv(rw)
		if err := rw.err(); err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// DecodeCSVBlock decodes a captured guest throughput block. Rows are
// returned in source order. An empty block has no rows.
func DecodeCSVBlock(r io.Reader, fileName string) ([]BlockRow, error) {
	return decode(r, fileName, ThroughputBlock, func(r *row) BlockRow {
		return BlockRow{
			Thread:    r.atoi("thread_id"),
			Benchmark: r.str("benchmark"),
			Core:      r.atoi("core"),
			Cores:     r.atoi("ncores"),
			MemSize:   r.parseInt("memsize"),
			Duration:  r.parseFloat("duration"),
			Ops:       r.parseInt("operations"),
		}
	})
}

// DecodeLatencyBlock decodes a captured guest latency block.
func DecodeLatencyBlock(r io.Reader, fileName string) ([]LatencySample, error) {
	return decode(r, fileName, LatencyBlock, func(r *row) LatencySample {
		return LatencySample{
			Thread:    r.atoi("thread_id"),
			Benchmark: r.str("benchmark"),
			Cores:     r.atoi("ncores"),
			MemSize:   r.parseInt("memsize"),
			Elapsed:   r.parseInt("elapsed"),
			Ops:       r.parseInt("operations"),
			Latency:   r.parseFloat("latency"),
		}
	})
}

// ReadThroughputTable reads a persisted throughput table.
func ReadThroughputTable(r io.Reader, fileName string) ([]ThroughputRecord, error) {
	return decode(r, fileName, ThroughputTable, func(r *row) ThroughputRecord {
		return ThroughputRecord{
			Config:  r.str("config"),
			Cores:   r.atoi("ncores"),
			Thread:  r.atoi("tid"),
			Ops:     r.parseInt("tput"),
			Runtime: r.parseFloat("runtime"),
		}
	})
}

// ReadLatencyTable reads a persisted latency table.
func ReadLatencyTable(r io.Reader, fileName string) ([]LatencySummary, error) {
	return decode(r, fileName, LatencyTable, func(r *row) LatencySummary {
		return LatencySummary{
			GitRev:    r.str("git_rev"),
			Benchmark: r.str("benchmark"),
			Cores:     r.atoi("ncores"),
			MemSize:   r.parseInt("memsize"),
			P1:        r.parseFloat("p1"),
			P25:       r.parseFloat("p25"),
			P50:       r.parseFloat("p50"),
			P75:       r.parseFloat("p75"),
			P99:       r.parseFloat("p99"),
			P999:      r.parseFloat("p999"),
			P100:      r.parseFloat("p100"),
			OS:        r.str("os"),
		}
	})
}

// WriteThroughputTable writes recs in throughput table form, preceded
// by the header if header is set.
func WriteThroughputTable(w io.Writer, recs []ThroughputRecord, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		cw.Write(ThroughputTable.Columns)
	}
	for _, r := range recs {
		cw.Write([]string{r.Config, strconv.Itoa(r.Cores), strconv.Itoa(r.Thread), strconv.FormatInt(r.Ops, 10), formatFloat(r.Runtime)})
	}
	cw.Flush()
	return cw.Error()
}

// WriteLatencyTable writes rows in latency table form, preceded by the
// header if header is set.
func WriteLatencyTable(w io.Writer, rows []LatencySummary, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		cw.Write(LatencyTable.Columns)
	}
	for _, r := range rows {
		rec := []string{r.GitRev, r.Benchmark, strconv.Itoa(r.Cores), strconv.FormatInt(r.MemSize, 10)}
		for _, p := range []float64{r.P1, r.P25, r.P50, r.P75, r.P99, r.P999, r.P100} {
			rec = append(rec, formatFloat(p))
		}
		rec = append(rec, r.OS)
		cw.Write(rec)
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
