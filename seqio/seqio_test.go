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

package seqio

import (
	"os"
	"path/filepath"
	"testing"

	gzip "github.com/klauspost/pgzip"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDetectFileType(t *testing.T) {
	Convey("File types are detected from the file name", t, func() {
		tests := map[string]FileType{
			"reads.fasta":      FileTypeFasta,
			"reads.fa":         FileTypeFasta,
			"reads.fna":        FileTypeFasta,
			"READS.FA":         FileTypeFasta,
			"reads.fasta.gz":   FileTypeFastaGz,
			"reads.fastq":      FileTypeFastq,
			"reads.fq":         FileTypeFastq,
			"dir/reads.fq.gz":  FileTypeFastqGz,
			"s1.run2.fastq.gz": FileTypeFastqGz,
			"s1.run2.fa":       FileTypeFasta,
		}

		for name, want := range tests {
			ft, err := DetectFileType(name)
			So(err, ShouldBeNil)
			So(ft, ShouldEqual, want)
		}

		Convey("and unsupported names are an error", func() {
			_, err := DetectFileType("reads.sam")
			So(err, ShouldEqual, ErrUnsupportedFileType)

			_, err = DetectFileType("reads.gz")
			So(err, ShouldEqual, ErrUnsupportedFileType)
		})
	})
}

func TestReadWrite(t *testing.T) {
	Convey("Given a directory of sequence files", t, func() {
		dir := t.TempDir()

		Convey("you can read FASTA records", func() {
			path := filepath.Join(dir, "in.fasta")
			err := os.WriteFile(path, []byte(">s1 bin=x\nACGT\nACGT\n>s2\nTTTT\n"), 0600)
			So(err, ShouldBeNil)

			records, err := ReadAll(path)
			So(err, ShouldBeNil)
			So(records, ShouldResemble, []Record{
				{Header: "s1 bin=x", Seq: "ACGTACGT"},
				{Header: "s2", Seq: "TTTT"},
			})
			So(records[0].ID(), ShouldEqual, "s1")

			n, err := Count(path)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("you can read FASTQ records", func() {
			path := filepath.Join(dir, "in.fastq")
			err := os.WriteFile(path, []byte("@r1\nACGT\n+\nIIII\n@r2\nGGGG\n+\nIIII\n"), 0600)
			So(err, ShouldBeNil)

			records, err := ReadAll(path)
			So(err, ShouldBeNil)
			So(records, ShouldResemble, []Record{
				{Header: "r1", Seq: "ACGT"},
				{Header: "r2", Seq: "GGGG"},
			})

			Convey("and a truncated record is an error", func() {
				err := os.WriteFile(path, []byte("@r1\nACGT\n"), 0600)
				So(err, ShouldBeNil)

				_, err = ReadAll(path)
				So(err, ShouldEqual, ErrTruncatedFastq)
			})
		})

		Convey("you can read gzipped files", func() {
			path := filepath.Join(dir, "in.fq.gz")

			f, err := os.Create(path)
			So(err, ShouldBeNil)

			gz := gzip.NewWriter(f)
			_, err = gz.Write([]byte("@r1\nACGT\n+\nIIII\n"))
			So(err, ShouldBeNil)
			So(gz.Close(), ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			records, err := ReadAll(path)
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)
			So(records[0].Seq, ShouldEqual, "ACGT")
		})

		Convey("you can write FASTA and read it back", func() {
			path := filepath.Join(dir, "out.fasta")
			records := []Record{
				{Header: "c1;size=3", Seq: "ACGT"},
				{Header: "c2", Seq: "TTTT"},
			}

			err := WriteFasta(path, records)
			So(err, ShouldBeNil)

			got, err := ReadAll(path)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, records)
		})
	})
}
