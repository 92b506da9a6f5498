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

package seqkit

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeRunner struct {
	name   string
	args   []string
	stdout string
	err    error
}

func (f *fakeRunner) Run(name string, args ...string) error {
	f.name = name
	f.args = args

	return f.err
}

func (f *fakeRunner) Output(name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args

	return []byte(f.stdout), f.err
}

const locateOutput = `seqID	patternName	pattern	strand	start	end	matched
cons1	p1_A_Forward	AAAA	+	12	15	AAAA
cons1	p1_A_Reverse	TTTT	-	40	43	TTTT
cons2	p2_B_Reverse	GGGG	+	5	8	GGGG
`

func TestLocate(t *testing.T) {
	Convey("LocateArgs asks for degenerate matching from a pattern file", t, func() {
		So(LocateArgs("primers.fasta", "trimmed.fasta"), ShouldResemble,
			[]string{"locate", "-d", "-f", "primers.fasta", "trimmed.fasta"})
	})

	Convey("ParseLocate turns output rows into Hits", t, func() {
		hits, err := ParseLocate(locateOutput)
		So(err, ShouldBeNil)
		So(hits, ShouldHaveLength, 3)
		So(hits[0], ShouldResemble, Hit{
			SeqID:       "cons1",
			PatternName: "p1_A_Forward",
			Pattern:     "AAAA",
			Strand:      "+",
			Start:       12,
			End:         15,
		})
		So(hits[2].SeqID, ShouldEqual, "cons2")

		Convey("an empty table means no hits", func() {
			hits, err := ParseLocate("seqID\tpatternName\tpattern\tstrand\tstart\tend\tmatched\n")
			So(err, ShouldBeNil)
			So(hits, ShouldBeEmpty)
		})

		Convey("a malformed row is an error", func() {
			_, err := ParseLocate("header\ncons1\tonly\tthree\n")
			So(err, ShouldEqual, ErrBadLocateRow)

			_, err = ParseLocate("header\na\tb\tc\t+\tx\t9\tm\n")
			So(err, ShouldEqual, ErrBadLocateRow)
		})
	})

	Convey("Locate runs seqkit via the runner and parses the result", t, func() {
		r := &fakeRunner{stdout: locateOutput}
		client := New("/usr/bin/seqkit", r)

		hits, err := client.Locate("primers.fasta", "trimmed.fasta")
		So(err, ShouldBeNil)
		So(r.name, ShouldEqual, "/usr/bin/seqkit")
		So(r.args, ShouldResemble, []string{"locate", "-d", "-f", "primers.fasta", "trimmed.fasta"})
		So(hits, ShouldHaveLength, 3)
	})
}
