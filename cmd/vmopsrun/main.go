// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Vmopsrun builds the guest image, boots it once per core count, and
// records the results the vmops benchmark prints.
//
// Usage:
//
//	vmopsrun [flags]
//
// Each session writes a boot menu that runs the benchmark, starts the
// emulator, and follows the console until the result blocks have been
// printed. Throughput blocks are appended to barrelfish_results.csv in
// the results directory, latency blocks to barrelfish_latency.csv, and
// the full console transcript to <benchmark>-<cores>.log.
//
// Settings come from the file named by -config, if any; flags given on
// the command line override it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"vmops.dev/lab/internal/guest"
	"vmops.dev/lab/internal/labconfig"
	"vmops.dev/lab/report"
	"vmops.dev/lab/resultdb"
	_ "vmops.dev/lab/resultdb/sqlite3"
	"vmops.dev/lab/session"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

// Block file names in the results directory.
const (
	throughputFile = "barrelfish_results.csv"
	latencyFile    = "barrelfish_latency.csv"
)

func main() {
	log.SetPrefix("vmopsrun: ")
	log.SetFlags(0)
	if err := vmopsrun(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

type flags struct {
	config   string
	cores    string
	bench    string
	duration int64
	ops      int64
	memSize  int64
	build    string
	results  string
	db       string
	platform string
	hake     bool
	noBuild  bool
	noRun    bool
	kvm      bool
	keep     bool
	verbose  bool
}

func vmopsrun(stdout, stderr io.Writer, args []string) error {
	var f flags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	cfg, err := configure(fs, &f)
	if err != nil {
		return err
	}

	l := &lab{
		cfg:    cfg,
		exec:   guest.LocalExec{},
		stdout: stdout,
		log:    log.New(stderr, "vmopsrun: ", 0),
		sink: &report.BlockFiles{Dir: cfg.ResultsDir, Names: map[string]string{
			session.BlockThroughput: throughputFile,
			session.BlockLatency:    latencyFile,
		}},
		keepGoing: f.keep,
	}
	if f.verbose {
		l.vlog = log.New(stderr, "", 0)
	}
	return l.run(context.Background(), f.noRun)
}

func newFlagSet(stderr io.Writer, f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet("vmopsrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "read lab configuration from `file`")
	fs.StringVar(&f.cores, "c", "", "comma-separated `list` of core counts to run on")
	fs.StringVar(&f.bench, "bench", "", "run benchmark `name`")
	fs.Int64Var(&f.duration, "duration", 0, "run each session for `ms` milliseconds")
	fs.Int64Var(&f.ops, "ops", 0, "run `n` operations per thread and collect latencies")
	fs.Int64Var(&f.memSize, "memsize", 0, "map regions of `bytes` bytes")
	fs.StringVar(&f.build, "build", "", "guest build `dir`")
	fs.StringVar(&f.results, "results", "", "write results to `dir`")
	fs.StringVar(&f.db, "db", "", "also record results in database `driver:dsn`")
	fs.StringVar(&f.platform, "platform", "", "platform `name` recorded with the results")
	fs.BoolVar(&f.hake, "hake", false, "run hake to regenerate the Makefile")
	fs.BoolVar(&f.noBuild, "nobuild", false, "don't build the guest image")
	fs.BoolVar(&f.noRun, "n", false, "only build, don't run")
	fs.BoolVar(&f.kvm, "kvm", false, "require hardware acceleration")
	fs.BoolVar(&f.keep, "k", false, "keep going after a failed session")
	fs.BoolVar(&f.verbose, "v", false, "print commands, boot menus, and stage progress")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: vmopsrun [flags]\n")
		fs.PrintDefaults()
	}
	return fs
}

// configure loads the configuration file and applies the flags that
// were set on the command line.
func configure(fs *flag.FlagSet, f *flags) (*labconfig.Config, error) {
	cfg := labconfig.Default()
	if f.config != "" {
		var err error
		if cfg, err = labconfig.Load(f.config); err != nil {
			return nil, err
		}
	}
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "c":
			cfg.Cores = nil
			for _, s := range strings.Split(f.cores, ",") {
				n, perr := strconv.Atoi(strings.TrimSpace(s))
				if perr != nil {
					err = fmt.Errorf("bad core count in -c: %q", s)
					return
				}
				cfg.Cores = append(cfg.Cores, n)
			}
		case "bench":
			cfg.Benchmark = f.bench
		case "duration":
			cfg.DurationMS = f.duration
			if !set["ops"] {
				cfg.Operations = 0
			}
		case "ops":
			cfg.Operations = f.ops
			if !set["duration"] {
				cfg.DurationMS = 0
			}
		case "memsize":
			cfg.MemSize = f.memSize
		case "build":
			cfg.BuildDir = f.build
		case "results":
			cfg.ResultsDir = f.results
		case "db":
			cfg.Database = f.db
		case "platform":
			cfg.Platform = f.platform
		case "hake":
			cfg.Build.Hake = f.hake
		case "nobuild":
			cfg.Build.Skip = f.noBuild
		case "kvm":
			cfg.KVM = f.kvm
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// A lab runs the configured sessions.
type lab struct {
	cfg       *labconfig.Config
	exec      guest.Executor
	sink      *report.BlockFiles
	db        *resultdb.DB
	stdout    io.Writer
	log       *log.Logger // warnings
	vlog      *log.Logger // verbose progress; nil if quiet
	keepGoing bool
}

func (l *lab) vlogf(format string, args ...any) {
	if l.vlog != nil {
		l.vlog.Printf(format, args...)
	}
}

func (l *lab) run(ctx context.Context, noRun bool) error {
	cfg := l.cfg
	if !cfg.Build.Skip {
		b := &guest.Builder{Exec: l.exec, Dir: cfg.BuildDir, Jobs: cfg.Build.Jobs, Hake: cfg.Build.Hake, Log: l.vlog}
		if err := b.Build(); err != nil {
			return err
		}
	}
	if noRun {
		return nil
	}

	if err := os.MkdirAll(cfg.ResultsDir, 0777); err != nil {
		return err
	}
	if cfg.Database != "" {
		driver, dsn, err := labconfig.SplitDatabase(cfg.Database)
		if err != nil {
			return err
		}
		if l.db, err = resultdb.OpenSQL(driver, dsn); err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer l.db.Close()
	}

	rev, err := guest.Revision(l.exec, cfg.BuildDir)
	if err != nil {
		l.log.Printf("unknown guest revision: %v", err)
		rev = "unknown"
	}

	var failed int
	for _, cores := range cfg.Cores {
		l.vlogf("running %s on %d cores", cfg.Benchmark, cores)
		if err := l.session(ctx, cores, rev); err != nil {
			if !l.keepGoing {
				return err
			}
			l.log.Print(err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions failed", failed, len(cfg.Cores))
	}
	return nil
}

// session runs the benchmark once on cores cores.
func (l *lab) session(ctx context.Context, cores int, rev string) (err error) {
	cfg := l.cfg
	w := guest.Workload{Duration: cfg.Run(), Ops: cfg.Operations}
	args, err := guest.BenchArgs(cores, cfg.Benchmark, w, cfg.MemSize)
	if err != nil {
		return err
	}
	boot := guest.BootConfig{Cores: cores, Args: args, MemSize: cfg.MemSize}
	if l.vlog != nil {
		menu, err := guest.Menu(boot)
		if err != nil {
			return err
		}
		l.vlogf("using the following boot menu:\n%s", menu)
	}
	menuPath := filepath.Join(cfg.BuildDir, guest.MenuPath)
	if err := os.MkdirAll(filepath.Dir(menuPath), 0777); err != nil {
		return err
	}
	if err := guest.WriteMenu(menuPath, boot); err != nil {
		return err
	}

	tf, err := os.Create(filepath.Join(cfg.ResultsDir, fmt.Sprintf("%s-%d.log", cfg.Benchmark, cores)))
	if err != nil {
		return err
	}
	defer tf.Close()

	var dbs *resultdb.Session
	if l.db != nil {
		mode := "duration"
		if w.FixedOps() {
			mode = "ops"
		}
		dbs, err = l.db.NewSession(ctx, resultdb.SessionInfo{
			GitRev:    rev,
			Platform:  cfg.Platform,
			Benchmark: cfg.Benchmark,
			Cores:     cores,
			Mode:      mode,
		})
		if err != nil {
			return err
		}
		defer func() {
			status := "ok"
			if err != nil {
				status = err.Error()
			}
			if ferr := dbs.Finish(ctx, status); ferr != nil && err == nil {
				err = ferr
			}
		}()
	}

	launcher := &guest.Launcher{Dir: cfg.BuildDir, Command: cfg.Emulator.Command, Env: cfg.Emulator.Env}
	inst, err := launcher.Start()
	if err != nil {
		return err
	}
	plan := session.VMOpsPlan(session.PlanConfig{
		Cores:    cores,
		Run:      cfg.Run(),
		FixedOps: w.FixedOps(),
		KVM:      cfg.KVM,
		Boot:     cfg.Timeouts.Boot.Session(),
		Data:     cfg.Timeouts.Run.Session(),
	})
	ctrl := &session.Controller{Sink: l.sink, Transcript: tf, Log: l.vlog}
	res, err := ctrl.Run(inst, plan)
	if res != nil {
		for _, warn := range res.Warnings {
			l.log.Printf("%d cores: %v", cores, warn)
		}
	}
	if err != nil {
		return fmt.Errorf("%d cores: %w", cores, err)
	}

	recs, err := blockRecords(res.Blocks[session.BlockThroughput], session.PageSize(res))
	if err != nil {
		return fmt.Errorf("%d cores: %w", cores, err)
	}
	g := vmopsstat.GroupBy{MemSize: cfg.MemSize > 0, PageSize: true}
	if err := report.WriteThroughputText(l.stdout, vmopsstat.AggregateThroughput(recs, g), g); err != nil {
		return err
	}

	if dbs == nil {
		return nil
	}
	if err := dbs.InsertThroughput(ctx, recs); err != nil {
		return err
	}
	if block, ok := res.Blocks[session.BlockLatency]; ok {
		samples, err := vmopsfmt.DecodeLatencyBlock(strings.NewReader(block), latencyFile)
		if err != nil {
			return fmt.Errorf("%d cores: %w", cores, err)
		}
		for _, sum := range vmopsstat.SummarizeLatency(samples, rev, cfg.Platform) {
			if _, err := l.db.UpsertLatency(ctx, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// blockRecords decodes a captured throughput block.
func blockRecords(block, pageSize string) ([]vmopsfmt.ThroughputRecord, error) {
	rows, err := vmopsfmt.DecodeCSVBlock(strings.NewReader(block), throughputFile)
	if err != nil {
		return nil, err
	}
	recs := make([]vmopsfmt.ThroughputRecord, len(rows))
	for i, r := range rows {
		recs[i] = r.Record()
		recs[i].PageSize = pageSize
	}
	return recs, nil
}
