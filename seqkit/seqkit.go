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

// package seqkit runs `seqkit locate` to find where patterns occur anywhere
// in sequences, not just at their ends. This is the engine behind the
// decontamination failsafe.

package seqkit

import (
	"strconv"
	"strings"

	"github.com/wtsi-hgi/demux-automation/runner"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrBadLocateRow = Error("malformed seqkit locate output row")

	locateSubcommand = "locate"
	locateColumns    = 7
)

// Hit is one occurrence of a pattern within a sequence, parsed from a seqkit
// locate output row.
type Hit struct {
	SeqID       string
	PatternName string
	Pattern     string
	Strand      string
	Start       int
	End         int
}

// Client runs seqkit commands.
type Client struct {
	exe string
	r   runner.Runner
}

// New returns a Client that will run the given seqkit executable via the
// given Runner.
func New(exe string, r runner.Runner) *Client {
	return &Client{exe: exe, r: r}
}

// LocateArgs returns the argument list for locating the patterns in the
// given FASTA pattern file anywhere within the sequences of input.
// Degenerate IUPAC bases in the patterns are honoured, and both strands are
// searched.
func LocateArgs(patternFile, input string) []string {
	return []string{locateSubcommand, "-d", "-f", patternFile, input}
}

// Locate runs seqkit locate and parses its tab-separated output into Hits.
// No hits at all is a valid result: patterns simply did not occur.
func (c *Client) Locate(patternFile, input string) ([]Hit, error) {
	out, err := c.r.Output(c.exe, LocateArgs(patternFile, input)...)
	if err != nil {
		return nil, err
	}

	return ParseLocate(string(out))
}

// ParseLocate parses the output of seqkit locate: a header row followed by
// one row per occurrence with columns seqID, patternName, pattern, strand,
// start, end, matched.
func ParseLocate(out string) ([]Hit, error) {
	var hits []Hit

	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || i == 0 {
			continue
		}

		hit, err := parseLocateRow(line)
		if err != nil {
			return nil, err
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

func parseLocateRow(line string) (Hit, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < locateColumns-1 {
		return Hit{}, ErrBadLocateRow
	}

	start, err := strconv.Atoi(fields[4])
	if err != nil {
		return Hit{}, ErrBadLocateRow
	}

	end, err := strconv.Atoi(fields[5])
	if err != nil {
		return Hit{}, ErrBadLocateRow
	}

	return Hit{
		SeqID:       fields[0],
		PatternName: fields[1],
		Pattern:     fields[2],
		Strand:      fields[3],
		Start:       start,
		End:         end,
	}, nil
}
