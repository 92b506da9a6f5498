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

// package vsearch runs vsearch to collapse near-duplicate sequences into a
// non-redundant representative set. This is a pure dedup pass; it has no
// bearing on the correctness of primer removal.

package vsearch

import (
	"fmt"
	"os"

	"github.com/wtsi-hgi/demux-automation/runner"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrExpectedOutput = Error("vsearch did not produce the centroids file")

	// DefaultIdentity is the similarity threshold above which two sequences
	// are considered redundant.
	DefaultIdentity = 0.97
)

// Client runs vsearch commands.
type Client struct {
	exe string
	r   runner.Runner
}

// New returns a Client that will run the given vsearch executable via the
// given Runner.
func New(exe string, r runner.Runner) *Client {
	return &Client{exe: exe, r: r}
}

// ClusterArgs returns the argument list for clustering input at the given
// identity threshold, writing one representative per cluster to centroids
// with cluster sizes annotated in the headers.
func ClusterArgs(input string, identity float64, centroids string) []string {
	if identity <= 0 {
		identity = DefaultIdentity
	}

	return []string{
		"--cluster_fast", input,
		"--id", fmt.Sprintf("%.2f", identity),
		"--strand", "both",
		"--sizeout",
		"--centroids", centroids,
	}
}

// Cluster runs the clustering and verifies the centroids file was produced.
func (c *Client) Cluster(input string, identity float64, centroids string) error {
	if err := c.r.Run(c.exe, ClusterArgs(input, identity, centroids)...); err != nil {
		return err
	}

	if _, err := os.Stat(centroids); err != nil {
		return ErrExpectedOutput
	}

	return nil
}
