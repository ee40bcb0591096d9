// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package guest

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultCommand starts the emulator from the guest build directory.
var DefaultCommand = []string{"../tools/qemu-wrapper.sh", "--menu", MenuPath, "--arch", "x86_64"}

// DefaultEnv sizes the emulated machine.
var DefaultEnv = []string{"SMP=16", "MEMORY=8G"}

// A Launcher starts emulator instances.
type Launcher struct {
	Dir     string
	Command []string // defaults to DefaultCommand
	Env     []string // added to the environment; defaults to DefaultEnv
}

// An Instance is a running emulator. It implements session.Process.
type Instance struct {
	cmd *exec.Cmd
	out *io.PipeReader

	done    chan struct{} // closed when the process has been reaped
	waitErr error

	killOnce sync.Once
	killErr  error
}

// reapWait bounds how long Kill waits for a killed process to exit.
const reapWait = 10 * time.Second

// Start starts an emulator instance. Its stdout and stderr are merged
// into one stream in the order they are written.
func (l *Launcher) Start() (*Instance, error) {
	args := l.Command
	if len(args) == 0 {
		args = DefaultCommand
	}
	env := l.Env
	if env == nil {
		env = DefaultEnv
	}
	c := exec.Command(args[0], args[1:]...)
	c.Dir = l.Dir
	c.Env = append(os.Environ(), env...)
	pr, pw := io.Pipe()
	c.Stdout = pw
	c.Stderr = pw
	setProcessGroup(c)
	if err := c.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("starting emulator: %w", err)
	}

	inst := &Instance{cmd: c, out: pr, done: make(chan struct{})}
	go func() {
		inst.waitErr = c.Wait()
		pw.Close()
		close(inst.done)
	}()
	return inst, nil
}

// Output returns the merged output of the instance.
func (i *Instance) Output() io.Reader { return i.out }

// Pid returns the process ID of the emulator.
func (i *Instance) Pid() int { return i.cmd.Process.Pid }

// Kill kills the emulator and everything it started, and reaps it.
// It is safe to call Kill more than once and after the process has
// exited.
func (i *Instance) Kill() error {
	i.killOnce.Do(func() {
		if err := killGroup(i.cmd.Process); err != nil {
			i.killErr = err
			return
		}
		// Unblock pending writes so Wait can finish copying output.
		i.out.Close()
		select {
		case <-i.done:
		case <-time.After(reapWait):
			i.killErr = fmt.Errorf("emulator %d did not exit after kill", i.Pid())
		}
	})
	return i.killErr
}

// Wait waits for the emulator to exit and returns its exit status.
func (i *Instance) Wait() error {
	<-i.done
	return i.waitErr
}
