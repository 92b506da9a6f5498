/*******************************************************************************
 * Copyright (c) 2025 Genome Research Ltd.
 *
 * Authors:
 *	- Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package runner executes external tools. Commands are always a program name
// plus a structured argument list; nothing is ever passed through a shell.

package runner

import (
	"bytes"
	"os"
	"os/exec"
)

// Runner runs external commands. Tool clients take a Runner so tests can
// substitute a fake.
type Runner interface {
	// Run executes the named program with the given arguments, with stdout
	// and stderr passed through to ours, and returns any execution error.
	Run(name string, args ...string) error

	// Output executes the named program with the given arguments and returns
	// its stdout, with stderr passed through to ours.
	Output(name string, args ...string) ([]byte, error)
}

// Local is a Runner that executes commands as child processes on this
// machine. Timeouts and wall-clock limits are the surrounding batch
// scheduler's responsibility, not ours.
type Local struct{}

// Run executes the command with stdout and stderr passed through.
func (Local) Run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// Output executes the command and captures stdout.
func (Local) Output(name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer

	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	return stdout.Bytes(), err
}
