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

package vsearch

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeRunner struct {
	name  string
	args  []string
	touch bool
	err   error
}

func (f *fakeRunner) Run(name string, args ...string) error {
	f.name = name
	f.args = args

	if f.err != nil {
		return f.err
	}

	if f.touch {
		return os.WriteFile(args[len(args)-1], nil, 0600)
	}

	return nil
}

func (f *fakeRunner) Output(name string, args ...string) ([]byte, error) {
	return nil, f.Run(name, args...)
}

func TestCluster(t *testing.T) {
	Convey("ClusterArgs builds a cluster_fast invocation", t, func() {
		So(ClusterArgs("clean.fasta", 0.97, "nr.fasta"), ShouldResemble, []string{
			"--cluster_fast", "clean.fasta",
			"--id", "0.97",
			"--strand", "both",
			"--sizeout",
			"--centroids", "nr.fasta",
		})

		Convey("with the default identity when none is given", func() {
			args := ClusterArgs("clean.fasta", 0, "nr.fasta")
			So(args[3], ShouldEqual, "0.97")
		})
	})

	Convey("Cluster runs vsearch and checks for the centroids file", t, func() {
		dir := t.TempDir()
		centroids := filepath.Join(dir, "nr.fasta")

		r := &fakeRunner{touch: true}
		client := New("vsearch", r)

		err := client.Cluster("clean.fasta", 0.97, centroids)
		So(err, ShouldBeNil)
		So(r.name, ShouldEqual, "vsearch")

		Convey("and fails when the centroids file is missing", func() {
			r := &fakeRunner{}
			client := New("vsearch", r)

			err := client.Cluster("clean.fasta", 0.97, filepath.Join(dir, "other.fasta"))
			So(err, ShouldEqual, ErrExpectedOutput)
		})
	})
}
