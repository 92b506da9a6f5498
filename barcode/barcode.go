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

// package barcode parses barcode and primer FASTA files and resolves linked
// primer pairs.

package barcode

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/wtsi-hgi/demux-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoOrientation  = Error("header has no Forward or Reverse marker")
	ErrEmptySequence  = Error("barcode entry has an empty sequence")
	ErrDuplicateLabel = Error("duplicate barcode label")
	ErrInvalidBase    = Error("sequence contains a non-IUPAC character")

	headerPrefix = ">"
	labelCutset  = "|"
)

// iupacBases is every base code a barcode or primer sequence may contain,
// including the degenerate codes.
const iupacBases = "ACGTNRYSWKMBDHV"

// Set is a single named barcode or primer sequence from a FASTA file.
type Set struct {
	Label       string
	Sequence    string
	Orientation types.Orientation

	// PairIDs are the linked-pair identifiers the header declared membership
	// of; a sequence can belong to more than one pair.
	PairIDs []string
}

// Sets holds all the parsed entries of one file, split by orientation and
// preserving file order.
type Sets struct {
	Forward []Set
	Reverse []Set
}

// Labels returns the labels of the given orientation's entries, in file
// order.
func (s *Sets) Labels(o types.Orientation) []string {
	entries := s.Forward
	if o == types.OrientationReverse {
		entries = s.Reverse
	}

	labels := make([]string, len(entries))

	for i, entry := range entries {
		labels[i] = entry.Label
	}

	return labels
}

// ParseSetsFile opens the given FASTA file and calls ParseSets on it.
func ParseSetsFile(path string) (*Sets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return ParseSets(f)
}

// ParseSets parses FASTA-convention barcode/primer entries: a header line
// beginning ">", followed by one or more sequence lines that are concatenated
// with all whitespace stripped.
//
// The header must contain the literal string "Forward" or "Reverse"
// (case-sensitive) to declare the entry's orientation; a header with neither
// is an error. Any single-uppercase-letter token in the header (eg. the A in
// "lib1_A_Forward") declares membership of that linked pair; a header can
// declare more than one pair.
//
// Sequences are uppercased, have any "*" quality markers removed, and must
// consist only of IUPAC base codes.
func ParseSets(r io.Reader) (*Sets, error) {
	sets := &Sets{}
	seen := make(map[string]bool)

	var (
		header string
		seq    strings.Builder
	)

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, headerPrefix) {
			if err := sets.storeEntry(header, seq.String(), seen); err != nil {
				return nil, err
			}

			header = strings.TrimPrefix(line, headerPrefix)

			seq.Reset()

			continue
		}

		seq.WriteString(strings.Join(strings.Fields(line), ""))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := sets.storeEntry(header, seq.String(), seen); err != nil {
		return nil, err
	}

	return sets, nil
}

// storeEntry validates one header/sequence pair and appends it to the
// orientation it declares. A blank header means no entry has started yet.
func (s *Sets) storeEntry(header, seq string, seen map[string]bool) error {
	if header == "" {
		return nil
	}

	orientation, err := headerOrientation(header)
	if err != nil {
		return err
	}

	label := headerLabel(header)
	if seen[label] {
		return ErrDuplicateLabel
	}

	seen[label] = true

	cleaned, err := cleanSequence(seq)
	if err != nil {
		return err
	}

	entry := Set{
		Label:       label,
		Sequence:    cleaned,
		Orientation: orientation,
		PairIDs:     headerPairIDs(header),
	}

	if orientation == types.OrientationForward {
		s.Forward = append(s.Forward, entry)
	} else {
		s.Reverse = append(s.Reverse, entry)
	}

	return nil
}

func headerOrientation(header string) (types.Orientation, error) {
	switch {
	case strings.Contains(header, string(types.OrientationForward)):
		return types.OrientationForward, nil
	case strings.Contains(header, string(types.OrientationReverse)):
		return types.OrientationReverse, nil
	default:
		return "", ErrNoOrientation
	}
}

// headerLabel is the entry's unique name: the first word of the header,
// ignoring anything after a "|".
func headerLabel(header string) string {
	label, _, _ := strings.Cut(header, labelCutset)

	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// headerPairIDs extracts every single-uppercase-letter token from the header,
// treating any non-alphanumeric character as a token boundary.
func headerPairIDs(header string) []string {
	var ids []string

	tokens := strings.FieldsFunc(header, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	for _, token := range tokens {
		if len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z' {
			ids = append(ids, token)
		}
	}

	return ids
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func cleanSequence(seq string) (string, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(seq, "*", ""))
	if cleaned == "" {
		return "", ErrEmptySequence
	}

	for _, base := range cleaned {
		if !strings.ContainsRune(iupacBases, base) {
			return "", ErrInvalidBase
		}
	}

	return cleaned, nil
}
