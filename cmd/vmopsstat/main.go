// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Vmopsstat summarizes vmops results.
//
// Usage:
//
//	vmopsstat throughput [flags] table.csv...
//	vmopsstat latency [flags] block.csv...
//
// The throughput command reads throughput tables, as written by
// vmopsparse, and prints the total throughput of each configuration
// and core count. It can also plot throughput over core count with
// -chart and write an HTML report with -html.
//
// The latency command reads latency blocks, as collected by vmopsrun,
// computes latency percentiles per benchmark and core count, and
// merges them into the latency table (by default
// <os>_latency_percentiles.csv). A row with the same benchmark and core
// count is replaced.
//
// Either command reads from the result database given by -db instead of
// files when no files are named.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"vmops.dev/lab/internal/guest"
	"vmops.dev/lab/internal/labconfig"
	"vmops.dev/lab/report"
	"vmops.dev/lab/resultdb"
	_ "vmops.dev/lab/resultdb/sqlite3"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

func main() {
	log.SetPrefix("vmopsstat: ")
	log.SetFlags(0)
	if err := runStat(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: vmopsstat throughput [flags] table.csv...\n")
	fmt.Fprintf(w, "       vmopsstat latency [flags] block.csv...\n")
}

func runStat(stdout, stderr io.Writer, args []string) error {
	if len(args) == 0 {
		usage(stderr)
		return flag.ErrHelp
	}
	switch args[0] {
	case "throughput":
		return throughput(stdout, stderr, args[1:])
	case "latency":
		return latency(stdout, stderr, args[1:])
	}
	usage(stderr)
	return flag.ErrHelp
}

func openDB(dbArg string) (*resultdb.DB, error) {
	driver, dsn, err := labconfig.SplitDatabase(dbArg)
	if err != nil {
		return nil, err
	}
	db, err := resultdb.OpenSQL(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func writeHTML(path, title string, tput []vmopsstat.ThroughputRow, lat []vmopsfmt.LatencySummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, title, tput, lat); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseGroupBy(s string) (vmopsstat.GroupBy, error) {
	var g vmopsstat.GroupBy
	if s == "" {
		return g, nil
	}
	for _, name := range strings.Split(s, ",") {
		switch strings.TrimSpace(name) {
		case "memsize":
			g.MemSize = true
		case "pagesize":
			g.PageSize = true
		case "basename":
			g.BaseName = true
		default:
			return g, fmt.Errorf("unknown grouping %q", name)
		}
	}
	return g, nil
}

func throughput(stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("vmopsstat throughput", flag.ContinueOnError)
	fs.SetOutput(stderr)
	group := fs.String("group", "", "also group by comma-separated `dimensions`: memsize, pagesize, basename")
	config := fs.String("config", "", "only show `configuration` (database only)")
	chart := fs.String("chart", "", "plot throughput to `file` (.png, .svg, or .pdf)")
	logScale := fs.Bool("log", false, "plot throughput on a log scale")
	title := fs.String("title", "vmops throughput", "chart and report `title`")
	html := fs.String("html", "", "write an HTML report to `file`")
	dbSpec := fs.String("db", "", "read records from database `driver:dsn`")
	if err := fs.Parse(args); err != nil {
		return err
	}
	g, err := parseGroupBy(*group)
	if err != nil {
		return err
	}

	var recs []vmopsfmt.ThroughputRecord
	switch {
	case fs.NArg() > 0:
		for _, name := range fs.Args() {
			r, err := report.ReadThroughput(name)
			if err != nil {
				return err
			}
			recs = append(recs, r...)
		}
	case *dbSpec != "":
		db, err := openDB(*dbSpec)
		if err != nil {
			return err
		}
		defer db.Close()
		if recs, err = db.Throughput(context.Background(), *config); err != nil {
			return err
		}
	default:
		fs.Usage()
		return flag.ErrHelp
	}

	rows := vmopsstat.AggregateThroughput(recs, g)
	if err := report.WriteThroughputText(stdout, rows, g); err != nil {
		return err
	}
	if *chart != "" {
		if err := report.ThroughputChart(*chart, rows, report.ChartOptions{Title: *title, LogScale: *logScale}); err != nil {
			return err
		}
	}
	if *html != "" {
		return writeHTML(*html, *title, rows, nil)
	}
	return nil
}

func latency(stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("vmopsstat latency", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rev := fs.String("rev", "", "record git `revision` with the percentiles")
	src := fs.String("src", ".", "take the revision from the git checkout in `dir`")
	platform := fs.String("os", "barrelfish", "record platform `name` with the percentiles")
	tablePath := fs.String("table", "", "merge percentiles into `file` (default <os>_latency_percentiles.csv)")
	html := fs.String("html", "", "write an HTML report to `file`")
	dbSpec := fs.String("db", "", "also merge percentiles into database `driver:dsn`")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 && *dbSpec == "" {
		fs.Usage()
		return flag.ErrHelp
	}
	var db *resultdb.DB
	if *dbSpec != "" {
		var err error
		if db, err = openDB(*dbSpec); err != nil {
			return err
		}
		defer db.Close()
	}
	ctx := context.Background()

	// With only a database, show what it holds.
	if fs.NArg() == 0 {
		sums, err := db.LatencySummaries(ctx)
		if err != nil {
			return err
		}
		if err := report.WriteLatencyText(stdout, sums); err != nil {
			return err
		}
		if *html != "" {
			return writeHTML(*html, "vmops latency", nil, sums)
		}
		return nil
	}

	var samples []vmopsfmt.LatencySample
	for _, name := range fs.Args() {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		s, err := vmopsfmt.DecodeLatencyBlock(f, name)
		f.Close()
		if err != nil {
			return err
		}
		samples = append(samples, s...)
	}
	if *rev == "" {
		r, err := guest.Revision(guest.LocalExec{}, *src)
		if err != nil {
			return fmt.Errorf("finding revision (use -rev): %w", err)
		}
		*rev = r
	}
	sums := vmopsstat.SummarizeLatency(samples, *rev, *platform)

	path := *tablePath
	if path == "" {
		path = *platform + "_latency_percentiles.csv"
	}
	res, err := report.UpsertLatency(path, sums)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "%s: replaced %d, appended %d\n", path, res.Replaced, res.Appended)
	if db != nil {
		for _, s := range sums {
			if _, err := db.UpsertLatency(ctx, s); err != nil {
				return err
			}
		}
	}

	tab, err := report.ReadLatency(path)
	if err != nil {
		return err
	}
	if err := report.WriteLatencyText(stdout, tab.Rows); err != nil {
		return err
	}
	if *html != "" {
		return writeHTML(*html, "vmops latency", nil, tab.Rows)
	}
	return nil
}
