// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guest

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// BenchProgram is the guest path of the benchmark binary.
const BenchProgram = "/x86_64/sbin/vmops_array_mcn"

// MenuPath is the location of the boot menu in the build directory.
// DefaultCommand boots from it.
const MenuPath = "platforms/x86/menu.lst.x86_64"

// A Workload bounds one benchmark run. Exactly one of Duration and
// Ops is set.
type Workload struct {
	Duration time.Duration
	Ops      int64
}

// FixedOps reports whether w runs a fixed number of operations.
func (w Workload) FixedOps() bool { return w.Ops > 0 }

// BenchArgs returns the benchmark command line arguments for a run of
// bench on cores cores. A fixed operation count also enables the
// latency statistics. memSize is passed only if positive.
func BenchArgs(cores int, bench string, w Workload, memSize int64) ([]string, error) {
	if (w.Duration > 0) == (w.Ops > 0) {
		return nil, fmt.Errorf("workload needs exactly one of duration and operation count")
	}
	args := []string{"-p", strconv.Itoa(cores), "-b", bench}
	if w.FixedOps() {
		args = append(args, "-n", strconv.FormatInt(w.Ops, 10), "-s")
	} else {
		args = append(args, "-t", strconv.FormatInt(w.Duration.Milliseconds(), 10))
	}
	if memSize > 0 {
		args = append(args, "-m", strconv.FormatInt(memSize, 10))
	}
	return args, nil
}

// A BootConfig is the input of the boot menu.
type BootConfig struct {
	Cores   int
	Args    []string
	MemSize int64
}

var menuTmpl = template.Must(template.New("menu").Funcs(template.FuncMap{"join": strings.Join}).Parse(`
timeout 0

title Barrelfish
root (nd)
kernel /x86_64/sbin/elver loglevel=3
module /x86_64/sbin/cpu loglevel=3
module /x86_64/sbin/init

# Domains spawned by init
module /x86_64/sbin/mem_serv
module /x86_64/sbin/monitor

# Special boot time domains spawned by monitor
module  /x86_64/sbin/ramfsd boot
module  /x86_64/sbin/skb boot
modulenounzip /eclipseclp_ramfs.cpio.gz nospawn
modulenounzip /skb_ramfs.cpio.gz nospawn
module  /x86_64/sbin/kaluga boot
module  /x86_64/sbin/acpi boot
module  /x86_64/sbin/spawnd boot
module  /x86_64/sbin/proc_mgmt boot
module  /x86_64/sbin/startd boot

# Drivers
module /x86_64/sbin/corectrl auto

# vmops: {{.Cores}} cores{{if .MemSize}}, memsize {{.MemSize}}{{end}}
module {{.Program}} {{join .Args " "}}
`))

// Menu returns the boot menu for cfg.
func Menu(cfg BootConfig) (string, error) {
	if cfg.Cores <= 0 {
		return "", fmt.Errorf("boot menu: invalid core count %d", cfg.Cores)
	}
	var b strings.Builder
	err := menuTmpl.Execute(&b, struct {
		BootConfig
		Program string
	}{cfg, BenchProgram})
	return b.String(), err
}

// WriteMenu writes the boot menu for cfg to path.
func WriteMenu(path string, cfg BootConfig) error {
	m, err := Menu(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(m), 0666)
}
