// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guest

import (
	"fmt"
	"log"
	"strconv"
)

// DefaultTargets are the make targets of a bootable x86_64 image with
// the vmops benchmark.
var DefaultTargets = []string{"X86_64_Basic", "x86_64/sbin/vmops_array_mcn"}

// A Builder builds the guest image in a configured build directory.
type Builder struct {
	Exec Executor
	// Dir is the build directory of the guest source tree.
	Dir  string
	Jobs int
	// Hake regenerates the Makefile before building.
	Hake    bool
	Targets []string
	Log     *log.Logger
}

// Build runs the build. Each make target is built by its own make
// invocation, in order.
func (b *Builder) Build() error {
	if b.Hake {
		if err := b.run("bash", "../hake/hake.sh", "-s", "../", "-a", "x86_64"); err != nil {
			return err
		}
	}
	targets := b.Targets
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	jobs := b.Jobs
	if jobs <= 0 {
		jobs = 6
	}
	for _, t := range targets {
		if err := b.run("make", "-j", strconv.Itoa(jobs), t); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) run(cmd ...string) error {
	if b.Log != nil {
		b.Log.Printf("cd %s; %v", b.Dir, cmd)
	}
	if _, err := b.Exec.Run(b.Dir, RunStderr, cmd...); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}
