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

package manifest

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/demux-automation/types"
)

func platesSheet() *Sheet {
	return &Sheet{
		ColumnHeaders: []string{
			"plate_id", "five_prime_barcodes", "three_prime_barcodes",
			"primer_pairs", "rows", "columns", "error_rate", "notes",
		},
		Rows: [][]string{
			{"plate1", "/data/p1_5p.fasta", "/data/p1_3p.fasta",
				"/data/p1_primers.fasta", "8", "12", "0.15", "fish COI"},
			{"plate2", "/data/p2_5p.fasta", "/data/p2_3p.fasta",
				"/data/p2_primers.fasta", "8", "12", ""},
		},
	}
}

func samplesSheet() *Sheet {
	return &Sheet{
		ColumnHeaders: []string{"sample_id", "run_id", "study_id", "plate_id"},
		Rows: [][]string{
			{"sample1", "run1", "study1", "plate1"},
			{"sample2", "run1", "study1", "plate2"},
		},
	}
}

func TestSheetColumns(t *testing.T) {
	Convey("Given a retrieved sheet", t, func() {
		sheet := platesSheet()

		Convey("you can get specific columns of information", func() {
			cols, err := sheet.Columns("plate_id", "rows", "columns")
			So(err, ShouldBeNil)
			So(cols, ShouldResemble, [][]string{
				{"plate1", "8", "12"},
				{"plate2", "8", "12"},
			})
		})

		Convey("short rows come back with empty trailing cells", func() {
			cols, err := sheet.Columns("plate_id", "notes")
			So(err, ShouldBeNil)
			So(cols, ShouldResemble, [][]string{
				{"plate1", "fish COI"},
				{"plate2", ""},
			})
		})

		Convey("unknown column names are an error", func() {
			_, err := sheet.Columns("plate_id", "foo")
			So(err, ShouldEqual, ErrMissingColumn)
		})
	})
}

func TestMetaData(t *testing.T) {
	Convey("Plate metadata is extracted from the plates sheet", t, func() {
		plates, err := platesFromSheet(platesSheet())
		So(err, ShouldBeNil)
		So(plates, ShouldHaveLength, 2)
		So(plates["plate1"], ShouldResemble, &PlateMetaData{
			PlateID:               "plate1",
			FivePrimeBarcodePath:  "/data/p1_5p.fasta",
			ThreePrimeBarcodePath: "/data/p1_3p.fasta",
			PrimerPath:            "/data/p1_primers.fasta",
			Rows:                  8,
			Columns:               12,
			ErrorRate:             0.15,
		})
		So(plates["plate2"].ErrorRate, ShouldEqual, 0)

		Convey("and samples resolve to their plates", func() {
			samplePlates, err := samplePlatesFromSheet(samplesSheet(), plates)
			So(err, ShouldBeNil)

			md := &MetaData{Plates: plates, SamplePlates: samplePlates}

			sample := types.Sample{SampleID: "sample1", RunID: "run1"}
			So(md.PlateForSample(sample), ShouldEqual, plates["plate1"])

			unknown := types.Sample{SampleID: "sample9", RunID: "run1"}
			So(md.PlateForSample(unknown), ShouldBeNil)
		})

		Convey("a sample on an undeclared plate is an error", func() {
			bad := samplesSheet()
			bad.Rows[0][3] = "plate9"

			_, err := samplePlatesFromSheet(bad, plates)
			So(err, ShouldEqual, ErrMissingPlate)
		})
	})

	Convey("An empty sheet is an error", t, func() {
		_, err := platesFromSheet(&Sheet{})
		So(err, ShouldEqual, ErrNoData)

		_, err = platesFromSheet(nil)
		So(err, ShouldEqual, ErrNoData)
	})

	Convey("A plate with bad numeric cells is an error", t, func() {
		bad := platesSheet()
		bad.Rows[0][4] = "eight"

		_, err := platesFromSheet(bad)
		So(err, ShouldNotBeNil)
	})
}

func TestValidityPairs(t *testing.T) {
	Convey("ValidityPairs crosses the plate's laid-out labels", t, func() {
		plate := &PlateMetaData{Rows: 2, Columns: 3}

		five := []string{"F1", "F2", "F3", "F4", "F5"}
		three := []string{"T1", "T2", "T3"}

		ids := plate.ValidityPairs(five, three)
		So(ids, ShouldHaveLength, 6)
		So(ids, ShouldContain, types.Identifier{FivePrime: "F1", ThreePrime: "T2"})
		So(ids, ShouldNotContain, types.Identifier{FivePrime: "F4", ThreePrime: "T1"})
		So(ids, ShouldNotContain, types.Identifier{FivePrime: "F1", ThreePrime: "T3"})
	})

	Convey("Zero dimensions mean no limit", t, func() {
		plate := &PlateMetaData{}

		ids := plate.ValidityPairs([]string{"F1", "F2"}, []string{"T1"})
		So(ids, ShouldHaveLength, 2)
	})
}
