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

package screen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/types"
)

func TestExpand(t *testing.T) {
	Convey("Expand turns degenerate bases into every literal variant", t, func() {
		variants, err := Expand("ACGT")
		So(err, ShouldBeNil)
		So(variants, ShouldResemble, []string{"ACGT"})

		variants, err = Expand("ART")
		So(err, ShouldBeNil)
		So(variants, ShouldResemble, []string{"AAT", "AGT"})

		variants, err = Expand("NN")
		So(err, ShouldBeNil)
		So(variants, ShouldHaveLength, 16)
	})

	Convey("Expansion is bounded", t, func() {
		_, err := Expand(strings.Repeat("N", 7))
		So(err, ShouldEqual, ErrTooDegenerate)
	})

	Convey("Invalid bases are rejected", t, func() {
		_, err := Expand("ACXGT")
		So(err, ShouldEqual, barcode.ErrInvalidBase)
	})
}

func TestScanner(t *testing.T) {
	primers := []barcode.Set{
		{Label: "primerF", Sequence: "GGAGGA", Orientation: types.OrientationForward},
		{Label: "primerR", Sequence: "CCWTAC", Orientation: types.OrientationReverse},
	}

	Convey("Given a scanner over degenerate primers", t, func() {
		s, err := New(primers)
		So(err, ShouldBeNil)

		dir := t.TempDir()
		path := filepath.Join(dir, "clean.fasta")

		fasta := ">r1 kept\nAAAAGGAGGAAAAA\n" +
			">r2\nTTTCCATACGGG\n" +
			">r3\nAAACCTTACAAAGGAGGA\n" +
			">r4\nCATCATCATCAT\n" +
			">r5 revcomp of primerF\nTTTCCTCCTTT\n" +
			">r6 soft-masked\ntttggAGGAttt\n"
		So(os.WriteFile(path, []byte(fasta), 0600), ShouldBeNil)

		Convey("File reports each read containing a primer", func() {
			hits, err := s.File(path)
			So(err, ShouldBeNil)
			So(hits, ShouldResemble, []Hit{
				{File: path, ReadID: "r1", Primers: []string{"primerF"}},
				{File: path, ReadID: "r2", Primers: []string{"primerR"}},
				{File: path, ReadID: "r3", Primers: []string{"primerR", "primerF"}},
				{File: path, ReadID: "r5", Primers: []string{"primerF"}},
				{File: path, ReadID: "r6", Primers: []string{"primerF"}},
			})
		})

		Convey("and WriteReport persists them as CSV", func() {
			hits, err := s.File(path)
			So(err, ShouldBeNil)

			reportPath := filepath.Join(dir, "report.csv")
			So(WriteReport(reportPath, hits), ShouldBeNil)

			report, err := os.ReadFile(reportPath)
			So(err, ShouldBeNil)

			lines := strings.Split(strings.TrimSpace(string(report)), "\n")
			So(lines[0], ShouldEqual, "file,read_id,primers")
			So(lines, ShouldHaveLength, 6)
			So(lines[3], ShouldEndWith, "r3,primerR;primerF")
		})

		Convey("Files accumulates hits across inputs", func() {
			other := filepath.Join(dir, "other.fasta")
			So(os.WriteFile(other, []byte(">o1\nGGAGGA\n"), 0600), ShouldBeNil)

			hits, err := s.Files([]string{path, other})
			So(err, ShouldBeNil)
			So(hits, ShouldHaveLength, 6)
			So(hits[5].File, ShouldEqual, other)
		})
	})

	Convey("A scanner needs at least one primer", t, func() {
		_, err := New(nil)
		So(err, ShouldEqual, ErrNoPrimers)
	})
}
