// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guest wraps the external collaborators of a vmops session:
// the guest image build, the boot menu, the emulator launch, and the
// source revision.
package guest

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// A RunMode controls the details of running a command.
type RunMode int

const (
	_         RunMode = 1 << iota
	RunTrim           // trim spaces in output
	RunStderr         // include stderr in output
)

// An Executor runs commands in a directory.
//
// Leading arguments of the form KEY=VALUE are added to the command's
// environment. If the command fails, Run returns an empty output and an
// error that contains both stdout and stderr.
type Executor interface {
	Run(dir string, mode RunMode, cmd ...string) (out string, err error)
}

// LocalExec is an Executor that runs commands on the local system.
type LocalExec struct{}

func (LocalExec) Run(dir string, mode RunMode, cmd ...string) (out string, err error) {
	c, err := command(dir, cmd)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if mode&RunStderr != 0 {
		c.Stderr = &stdout // merge stdout and stderr
	}
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%s: %s\n%s%s", strings.Join(cmd, " "), err, stdout.Bytes(), stderr.Bytes())
	}
	out = stdout.String()
	if mode&RunTrim != 0 {
		out = strings.TrimSpace(out)
	}
	return out, nil
}

// command builds the exec.Cmd for cmd, splitting off leading
// environment assignments.
func command(dir string, cmd []string) (*exec.Cmd, error) {
	if len(cmd) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	orig := cmd
	var env []string
	for len(cmd) > 0 && strings.Contains(cmd[0], "=") {
		if env == nil {
			env = os.Environ()
		}
		env = append(env, cmd[0])
		cmd = cmd[1:]
	}
	if len(cmd) == 0 {
		return nil, fmt.Errorf("command entirely environment: %s", strings.Join(orig, " "))
	}
	c := exec.Command(cmd[0], cmd[1:]...)
	c.Dir = dir
	c.Env = env
	return c, nil
}

// Revision returns the abbreviated commit hash of the git checkout
// containing dir.
func Revision(x Executor, dir string) (string, error) {
	return x.Run(dir, RunTrim, "git", "rev-parse", "--short", "HEAD")
}
