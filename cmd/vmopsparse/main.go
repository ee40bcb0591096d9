// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Vmopsparse converts benchmark output into the throughput table.
//
// Usage:
//
//	vmopsparse [-format f] [-o table.csv] [-s] [file...]
//
// The input files, or standard input if none are given, are read in one
// of three formats:
//
//	narrative   the guest's "+ VMOPS" console narrative (default)
//	blocks      throughput CSV blocks, as collected by vmopsrun
//	transcript  a raw console transcript; the CSV blocks are extracted
//
// The table is appended to the file named by -o, or written to standard
// output. With -s, vmopsparse also prints the throughput per
// configuration and core count.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"vmops.dev/lab/report"
	"vmops.dev/lab/session"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

func main() {
	log.SetPrefix("vmopsparse: ")
	log.SetFlags(0)
	if err := vmopsparse(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func vmopsparse(stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	fs := flag.NewFlagSet("vmopsparse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "narrative", "input `format`: narrative, blocks, or transcript")
	out := fs.String("o", "", "append the throughput table to `file`")
	summary := fs.Bool("s", false, "print a throughput summary")
	baseName := fs.Bool("basename", false, "summarize by benchmark name up to the first comma")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: vmopsparse [flags] [file...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	parse, ok := parsers[*format]
	if !ok {
		fs.Usage()
		return flag.ErrHelp
	}

	var recs []vmopsfmt.ThroughputRecord
	if fs.NArg() == 0 {
		r, err := parse(stdin, "<stdin>")
		if err != nil {
			return err
		}
		recs = r
	}
	for _, name := range fs.Args() {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		r, err := parse(f, name)
		f.Close()
		if err != nil {
			return err
		}
		recs = append(recs, r...)
	}

	if *out != "" {
		if err := report.AppendThroughput(*out, recs); err != nil {
			return err
		}
	} else if err := vmopsfmt.WriteThroughputTable(stdout, recs, true); err != nil {
		return err
	}
	if *summary {
		g := vmopsstat.GroupBy{BaseName: *baseName}
		return report.WriteThroughputText(stdout, vmopsstat.AggregateThroughput(recs, g), g)
	}
	return nil
}

var parsers = map[string]func(io.Reader, string) ([]vmopsfmt.ThroughputRecord, error){
	"narrative":  parseNarrative,
	"blocks":     parseBlocks,
	"transcript": parseTranscript,
}

func parseNarrative(r io.Reader, name string) ([]vmopsfmt.ThroughputRecord, error) {
	var recs []vmopsfmt.ThroughputRecord
	rd := vmopsfmt.NewReader(r, name)
	for rd.Scan() {
		recs = append(recs, rd.Run().Records()...)
	}
	return recs, rd.Err()
}

func parseBlocks(r io.Reader, name string) ([]vmopsfmt.ThroughputRecord, error) {
	rows, err := vmopsfmt.DecodeCSVBlock(r, name)
	if err != nil {
		return nil, err
	}
	recs := make([]vmopsfmt.ThroughputRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.Record()
	}
	return recs, nil
}

func parseTranscript(r io.Reader, name string) ([]vmopsfmt.ThroughputRecord, error) {
	blocks, err := vmopsfmt.ScanBlocks(r, session.CSVBegin, session.CSVEnd)
	if err != nil {
		return nil, err
	}
	var recs []vmopsfmt.ThroughputRecord
	for i, b := range blocks {
		block, err := parseBlocks(strings.NewReader(b), fmt.Sprintf("%s#%d", name, i+1))
		if err != nil {
			return nil, err
		}
		recs = append(recs, block...)
	}
	return recs, nil
}
