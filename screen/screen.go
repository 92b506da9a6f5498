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

// package screen scans finished sequence files for exact occurrences of
// primer sequences, as an independent spot-check on decontaminated output.
// Degenerate primers are expanded to their literal variants and reverse
// complements are searched too, with all patterns matched
// case-insensitively in one pass per read.

package screen

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/seqio"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrTooDegenerate = Error("primer has too many degenerate variants to expand")
	ErrNoPrimers     = Error("no primers to screen for")

	// maxVariants bounds the expansion of a degenerate primer. A primer
	// with more variants than this is rejected rather than ballooning the
	// pattern set.
	maxVariants = 4096

	primerJoin = ";"
)

var iupacBases = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T",
	'N': "ACGT",
	'R': "AG", 'Y': "CT", 'S': "CG", 'W': "AT", 'K': "GT", 'M': "AC",
	'B': "CGT", 'D': "AGT", 'H': "ACT", 'V': "ACG",
}

// Hit records which primers were found in one read.
type Hit struct {
	File    string
	ReadID  string
	Primers []string
}

// Scanner matches a fixed primer set against sequence files.
type Scanner struct {
	matcher *ahocorasick.Matcher
	names   []string
}

// New returns a Scanner for the given primer sets. Each primer is expanded
// to its literal IUPAC variants, and the reverse complements of those
// variants are matched too.
func New(sets []barcode.Set) (*Scanner, error) {
	if len(sets) == 0 {
		return nil, ErrNoPrimers
	}

	var (
		patterns []string
		names    []string
	)

	for _, set := range sets {
		variants, err := Expand(set.Sequence)
		if err != nil {
			return nil, err
		}

		for _, variant := range variants {
			patterns = append(patterns, variant, barcode.ReverseComplement(variant))
			names = append(names, set.Label, set.Label)
		}
	}

	return &Scanner{
		matcher: ahocorasick.NewStringMatcher(patterns),
		names:   names,
	}, nil
}

// Expand returns every literal sequence a degenerate IUPAC sequence can
// stand for, in lexical base order at each position. A sequence with more
// than maxVariants expansions is ErrTooDegenerate.
func Expand(seq string) ([]string, error) {
	count := 1

	for i := 0; i < len(seq); i++ {
		bases, ok := iupacBases[seq[i]]
		if !ok {
			return nil, barcode.ErrInvalidBase
		}

		count *= len(bases)
		if count > maxVariants {
			return nil, ErrTooDegenerate
		}
	}

	variants := []string{""}

	for i := 0; i < len(seq); i++ {
		bases := iupacBases[seq[i]]
		next := make([]string, 0, len(variants)*len(bases))

		for _, variant := range variants {
			for _, base := range bases {
				next = append(next, variant+string(base))
			}
		}

		variants = next
	}

	return variants, nil
}

// File scans the sequence file at path and returns one Hit per read that
// contains at least one primer. Reads without hits are omitted.
func (s *Scanner) File(path string) ([]Hit, error) {
	records, err := seqio.ReadAll(path)
	if err != nil {
		return nil, err
	}

	var hits []Hit

	for _, record := range records {
		primers := s.primersIn(record.Seq)
		if len(primers) == 0 {
			continue
		}

		hits = append(hits, Hit{
			File:    path,
			ReadID:  record.ID(),
			Primers: primers,
		})
	}

	return hits, nil
}

// Files scans each file in turn, accumulating hits.
func (s *Scanner) Files(paths []string) ([]Hit, error) {
	var hits []Hit

	for _, path := range paths {
		fileHits, err := s.File(path)
		if err != nil {
			return nil, err
		}

		hits = append(hits, fileHits...)
	}

	return hits, nil
}

// primersIn returns the unique primer names occurring in seq, in
// first-match order. Reads may be lowercase or soft-masked, so matching is
// against the uppercased sequence.
func (s *Scanner) primersIn(seq string) []string {
	var primers []string

	seen := make(map[string]bool)

	for _, i := range s.matcher.Match([]byte(strings.ToUpper(seq))) {
		name := s.names[i]
		if seen[name] {
			continue
		}

		seen[name] = true
		primers = append(primers, name)
	}

	return primers
}

// WriteReport writes the hits as a CSV file with columns file, read_id and
// primers, the latter joining multiple primer names with ";".
func WriteReport(path string, hits []Hit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{"file", "read_id", "primers"}); err != nil {
		f.Close()

		return err
	}

	for _, hit := range hits {
		row := []string{hit.File, hit.ReadID, strings.Join(hit.Primers, primerJoin)}
		if err := w.Write(row); err != nil {
			f.Close()

			return err
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}
