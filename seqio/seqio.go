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

// package seqio reads and writes FASTA and FASTQ sequence files, compressed
// or not.

package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	gzip "github.com/klauspost/pgzip"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrUnsupportedFileType = Error("unsupported sequence file type")
	ErrTruncatedFastq      = Error("truncated fastq record")

	fastaHeaderPrefix = ">"
	fastqHeaderPrefix = "@"

	filePerm = 0600
)

// FileType is a recognised sequence file format.
type FileType string

const (
	FileTypeFasta   FileType = "fasta"
	FileTypeFastaGz FileType = "fasta.gz"
	FileTypeFastq   FileType = "fastq"
	FileTypeFastqGz FileType = "fastq.gz"
)

var (
	fastaExtensions = []string{".fasta", ".fa", ".fna"}
	fastqExtensions = []string{".fastq", ".fq"}
)

// DetectFileType determines from the file name whether the given path is
// FASTA or FASTQ, and whether it is gzipped.
func DetectFileType(path string) (FileType, error) {
	name := strings.ToLower(path)

	gzipped := strings.HasSuffix(name, ".gz")
	if gzipped {
		name = strings.TrimSuffix(name, ".gz")
	}

	switch {
	case hasAnySuffix(name, fastaExtensions):
		if gzipped {
			return FileTypeFastaGz, nil
		}

		return FileTypeFasta, nil
	case hasAnySuffix(name, fastqExtensions):
		if gzipped {
			return FileTypeFastqGz, nil
		}

		return FileTypeFastq, nil
	default:
		return "", ErrUnsupportedFileType
	}
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

// Record is one sequence with its header line (without the ">" or "@"
// prefix). Records are value types; stages transform them by making new ones.
type Record struct {
	Header string
	Seq    string
}

// ID returns the first whitespace-delimited word of the header.
func (r Record) ID() string {
	fields := strings.Fields(r.Header)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// ReadAll reads every record from the given FASTA or FASTQ file, decompressing
// if necessary.
func ReadAll(path string) ([]Record, error) {
	ft, err := DetectFileType(path)
	if err != nil {
		return nil, err
	}

	r, closeAll, err := openReader(path, ft)
	if err != nil {
		return nil, err
	}

	defer closeAll()

	switch ft {
	case FileTypeFastq, FileTypeFastqGz:
		return readFastq(r)
	default:
		return readFasta(r)
	}
}

func openReader(path string, ft FileType) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if ft == FileTypeFastaGz || ft == FileTypeFastqGz {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()

			return nil, nil, err
		}

		return gz, func() {
			gz.Close()
			f.Close()
		}, nil
	}

	return f, func() { f.Close() }, nil
}

func readFasta(r io.Reader) ([]Record, error) {
	var (
		records []Record
		header  string
		seq     strings.Builder
		started bool
	)

	scanner := newScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, fastaHeaderPrefix) {
			if started {
				records = append(records, Record{Header: header, Seq: seq.String()})
			}

			header = strings.TrimPrefix(line, fastaHeaderPrefix)
			started = true

			seq.Reset()

			continue
		}

		seq.WriteString(line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if started {
		records = append(records, Record{Header: header, Seq: seq.String()})
	}

	return records, nil
}

func readFastq(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := newScanner(r)

	for scanner.Scan() {
		header := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), fastqHeaderPrefix)
		if header == "" {
			continue
		}

		// each record is exactly 4 lines: header, sequence, plus, quality
		lines := make([]string, 0, 3)

		for i := 0; i < 3; i++ {
			if !scanner.Scan() {
				return nil, ErrTruncatedFastq
			}

			lines = append(lines, strings.TrimSpace(scanner.Text()))
		}

		records = append(records, Record{Header: header, Seq: lines[0]})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	return scanner
}

// Count returns the number of records in the given sequence file.
func Count(path string) (int, error) {
	records, err := ReadAll(path)
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// WriteFasta writes the given records to path as FASTA.
func WriteFasta(path string, records []Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)

	for _, record := range records {
		if _, err := fmt.Fprintf(w, ">%s\n%s\n", record.Header, record.Seq); err != nil {
			f.Close()

			return err
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}
