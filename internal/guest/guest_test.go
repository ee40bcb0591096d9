// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBenchArgs(t *testing.T) {
	tests := []struct {
		cores int
		bench string
		w     Workload
		mem   int64
		want  []string
	}{
		{1, "independent", Workload{Duration: 10 * time.Second}, 0, []string{"-p", "1", "-b", "independent", "-t", "10000"}},
		{4, "shared", Workload{Ops: 1000}, 0, []string{"-p", "4", "-b", "shared", "-n", "1000", "-s"}},
		{2, "isolated", Workload{Duration: time.Second}, 1 << 20, []string{"-p", "2", "-b", "isolated", "-t", "1000", "-m", "1048576"}},
	}
	for _, tt := range tests {
		got, err := BenchArgs(tt.cores, tt.bench, tt.w, tt.mem)
		if err != nil {
			t.Errorf("BenchArgs(%d, %q, %+v): %v", tt.cores, tt.bench, tt.w, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("BenchArgs(%d, %q, %+v) mismatch (-want +got):\n%s", tt.cores, tt.bench, tt.w, diff)
		}
	}

	for _, w := range []Workload{{}, {Duration: time.Second, Ops: 5}} {
		if _, err := BenchArgs(1, "x", w, 0); err == nil {
			t.Errorf("BenchArgs with workload %+v succeeded", w)
		}
	}
}

func TestMenu(t *testing.T) {
	args, _ := BenchArgs(3, "independent", Workload{Duration: 5 * time.Second}, 0)
	m, err := Menu(BootConfig{Cores: 3, Args: args})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(m), "\n")
	if got, want := lines[len(lines)-1], "module /x86_64/sbin/vmops_array_mcn -p 3 -b independent -t 5000"; got != want {
		t.Errorf("last line = %q, want %q", got, want)
	}
	if !strings.Contains(m, "kernel /x86_64/sbin/elver") {
		t.Errorf("menu has no kernel line:\n%s", m)
	}

	if _, err := Menu(BootConfig{Cores: 0}); err == nil {
		t.Errorf("Menu with no cores succeeded")
	}

	path := filepath.Join(t.TempDir(), "menu.lst")
	if err := WriteMenu(path, BootConfig{Cores: 3, Args: args}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != m {
		t.Errorf("WriteMenu wrote %q, %v", data, err)
	}
}

// fakeExec records commands instead of running them.
type fakeExec struct {
	cmds []string
	fail string // fail commands with this prefix
	out  string
}

func (x *fakeExec) Run(dir string, mode RunMode, cmd ...string) (string, error) {
	line := dir + ": " + strings.Join(cmd, " ")
	x.cmds = append(x.cmds, line)
	if x.fail != "" && strings.HasPrefix(strings.Join(cmd, " "), x.fail) {
		return "", errors.New("exit status 2")
	}
	return x.out, nil
}

func TestBuilder(t *testing.T) {
	x := &fakeExec{}
	b := &Builder{Exec: x, Dir: "build", Hake: true}
	if err := b.Build(); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"build: bash ../hake/hake.sh -s ../ -a x86_64",
		"build: make -j 6 X86_64_Basic",
		"build: make -j 6 x86_64/sbin/vmops_array_mcn",
	}
	if diff := cmp.Diff(want, x.cmds); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	x = &fakeExec{fail: "make -j 2 a"}
	b = &Builder{Exec: x, Dir: "build", Jobs: 2, Targets: []string{"a", "b"}}
	err := b.Build()
	if err == nil || !strings.HasPrefix(err.Error(), "build: ") {
		t.Errorf("Build = %v, want build error", err)
	}
	if len(x.cmds) != 1 {
		t.Errorf("Build kept going after failure: %q", x.cmds)
	}
}

func TestRevision(t *testing.T) {
	x := &fakeExec{out: "1a2b3c4"}
	rev, err := Revision(x, "src")
	if err != nil || rev != "1a2b3c4" {
		t.Errorf("Revision = %q, %v", rev, err)
	}
	if want := "src: git rev-parse --short HEAD"; x.cmds[0] != want {
		t.Errorf("ran %q, want %q", x.cmds[0], want)
	}
}

func TestLocalExec(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	var x LocalExec
	out, err := x.Run("", RunTrim, "VMOPS_TEST=hello", "sh", "-c", "echo $VMOPS_TEST; echo err >&2")
	if err != nil || out != "hello" {
		t.Errorf("Run = %q, %v; want %q", out, err, "hello")
	}
	out, err = x.Run("", RunStderr, "sh", "-c", "echo out; echo err >&2")
	if err != nil || out != "out\nerr\n" {
		t.Errorf("Run with stderr = %q, %v", out, err)
	}
	_, err = x.Run("", 0, "sh", "-c", "echo broken >&2; exit 3")
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("failing Run = %v, want error with stderr", err)
	}
	if _, err := x.Run("", 0, "A=1"); err == nil {
		t.Errorf("Run of bare assignment succeeded")
	}
}
