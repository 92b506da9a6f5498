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

// package cutadapt builds and runs cutadapt commands. cutadapt is our
// trimming engine: it assigns each read to at most one named pattern, trims
// the matched portion, and routes unmatched reads to a separate output.
// Which pattern wins when a read could satisfy several is cutadapt's own
// policy, which we deliberately do not re-implement or second-guess.

package cutadapt

import (
	"fmt"
	"os"
	"strings"

	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/runner"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoAdapters      = Error("no adapters specified")
	ErrNoInput         = Error("no input file specified")
	ErrNoOutput        = Error("no output specified")
	ErrExpectedOutput  = Error("cutadapt did not produce an expected output file")
	ErrMissingTemplate = Error("output path lacks the {name} template")

	// NameTemplate in an output path makes cutadapt write one file per
	// adapter name, plus one named UnknownName for unmatched reads.
	NameTemplate = "{name}"

	// UnknownName is the adapter name cutadapt assigns to unmatched reads
	// when demultiplexing with NameTemplate.
	UnknownName = "unknown"

	DefaultErrorRate = 0.15

	anchorFive  = "^"
	anchorThree = "$"
	linkedSep   = "..."
)

// Adapter is one named pattern. Anchored five-prime adapters only match at
// the start of a read; anchored three-prime adapters only at the end.
type Adapter struct {
	Name     string
	Sequence string
	Anchored bool
}

// Linked is a linked "forward...reverse" pattern built from a complete
// primer pair. The reverse side is given as sequenced (5'->3' of the reverse
// primer); the builder reverse-complements it, since that is how it appears
// at the 3' end of a read.
type Linked struct {
	Name    string
	Forward string
	Reverse string
}

func (l Linked) spec() string {
	return l.Name + "=" + l.Forward + linkedSep + barcode.ReverseComplement(l.Reverse)
}

// Command represents one cutadapt invocation with typed fields. The
// zero value is not runnable; fill in at least one adapter, Input and
// Output.
type Command struct {
	FivePrime   []Adapter
	ThreePrime  []Adapter
	LinkedPairs []Linked

	// ErrorRate is the permitted error rate when matching patterns; 0 means
	// DefaultErrorRate.
	ErrorRate float64

	// Revcomp also tries the reverse complement of each read.
	Revcomp bool

	// DiscardUntrimmed drops unmatched reads instead of routing them.
	DiscardUntrimmed bool

	// UntrimmedOutput routes unmatched reads to this path.
	UntrimmedOutput string

	// MinLength discards reads shorter than this after trimming, when >0.
	MinLength int

	// JSONReport makes cutadapt write machine-readable run statistics to
	// this path. We treat the contents as opaque and only log them.
	JSONReport string

	Input  string
	Output string
}

// Args returns the structured argument list for this command. Adapters are
// emitted in the order given, five-prime before linked before three-prime.
func (c *Command) Args() ([]string, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	args := []string{"-e", fmt.Sprintf("%.3g", c.errorRate())}

	if c.Revcomp {
		args = append(args, "--revcomp")
	}

	if c.DiscardUntrimmed {
		args = append(args, "--discard-untrimmed")
	}

	if c.UntrimmedOutput != "" {
		args = append(args, "--untrimmed-output", c.UntrimmedOutput)
	}

	if c.MinLength > 0 {
		args = append(args, "--minimum-length", fmt.Sprintf("%d", c.MinLength))
	}

	args = append(args, c.adapterArgs()...)

	if c.JSONReport != "" {
		args = append(args, "--json="+c.JSONReport)
	}

	return append(args, "-o", c.Output, c.Input), nil
}

func (c *Command) validate() error {
	if len(c.FivePrime)+len(c.ThreePrime)+len(c.LinkedPairs) == 0 {
		return ErrNoAdapters
	}

	if c.Input == "" {
		return ErrNoInput
	}

	if c.Output == "" {
		return ErrNoOutput
	}

	if c.demultiplexes() && !strings.Contains(c.Output, NameTemplate) {
		return ErrMissingTemplate
	}

	return nil
}

func (c *Command) errorRate() float64 {
	if c.ErrorRate > 0 {
		return c.ErrorRate
	}

	return DefaultErrorRate
}

func (c *Command) adapterArgs() []string {
	var args []string

	for _, a := range c.FivePrime {
		spec := a.Sequence
		if a.Anchored {
			spec = anchorFive + spec
		}

		args = append(args, "-g", a.Name+"="+spec)
	}

	for _, l := range c.LinkedPairs {
		args = append(args, "-g", l.spec())
	}

	for _, a := range c.ThreePrime {
		spec := a.Sequence
		if a.Anchored {
			spec += anchorThree
		}

		args = append(args, "-a", a.Name+"="+spec)
	}

	return args
}

// demultiplexes reports whether this command splits its output per adapter
// name, which is the case whenever more than one pattern is in play or the
// caller asked for the name template.
func (c *Command) demultiplexes() bool {
	return len(c.FivePrime)+len(c.ThreePrime)+len(c.LinkedPairs) > 1 ||
		strings.Contains(c.Output, NameTemplate)
}

// ExpectedOutputs returns the paths this command must have produced for the
// run to count as successful: one file per adapter name for demultiplexing
// commands (plus the unknown file when unmatched reads are not discarded or
// routed elsewhere), or the single output path otherwise.
func (c *Command) ExpectedOutputs() []string {
	if !strings.Contains(c.Output, NameTemplate) {
		return []string{c.Output}
	}

	var paths []string

	for _, name := range c.adapterNames() {
		paths = append(paths, strings.ReplaceAll(c.Output, NameTemplate, name))
	}

	if !c.DiscardUntrimmed && c.UntrimmedOutput == "" {
		paths = append(paths, strings.ReplaceAll(c.Output, NameTemplate, UnknownName))
	}

	return paths
}

func (c *Command) adapterNames() []string {
	var names []string

	for _, a := range c.FivePrime {
		names = append(names, a.Name)
	}

	for _, l := range c.LinkedPairs {
		names = append(names, l.Name)
	}

	for _, a := range c.ThreePrime {
		names = append(names, a.Name)
	}

	return names
}

// Client runs cutadapt commands.
type Client struct {
	exe string
	r   runner.Runner
}

// New returns a Client that will run the given cutadapt executable via the
// given Runner.
func New(exe string, r runner.Runner) *Client {
	return &Client{exe: exe, r: r}
}

// Run executes the command and then verifies that every expected output file
// exists, returning ErrExpectedOutput if any is missing. cutadapt creates
// (possibly empty) files for every adapter name, so a missing file means the
// tool did not complete.
func (c *Client) Run(cmd *Command) error {
	args, err := cmd.Args()
	if err != nil {
		return err
	}

	if err := c.r.Run(c.exe, args...); err != nil {
		return err
	}

	for _, path := range cmd.ExpectedOutputs() {
		if _, err := os.Stat(path); err != nil {
			return ErrExpectedOutput
		}
	}

	return nil
}
