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

package demux

import (
	"bufio"
	"os"
	"strings"

	"github.com/wtsi-hgi/demux-automation/types"
)

const ErrBadValidityRow = Error("malformed validity matrix row")

// ValidityMatrix is the fixed set of (5'-label, 3'-label) pairings that can
// physically exist given the layout of the source plate. Any identifier
// outside this set is rejected after round two, whether or not reads were
// assigned to it.
type ValidityMatrix struct {
	allowed map[types.Identifier]bool
}

// NewValidityMatrix returns a ValidityMatrix allowing exactly the given
// identifiers.
func NewValidityMatrix(ids []types.Identifier) *ValidityMatrix {
	allowed := make(map[types.Identifier]bool, len(ids))

	for _, id := range ids {
		allowed[id] = true
	}

	return &ValidityMatrix{allowed: allowed}
}

// Cross returns the full cross product of the given 5' and 3' labels, for
// plates where every combination is laid out.
func Cross(five, three []string) []types.Identifier {
	ids := make([]types.Identifier, 0, len(five)*len(three))

	for _, f := range five {
		for _, t := range three {
			ids = append(ids, types.Identifier{FivePrime: f, ThreePrime: t})
		}
	}

	return ids
}

// ParseValidityFile reads allowed pairings from a plain-text file with one
// tab-separated "fiveLabel<TAB>threeLabel" row per line. Blank lines and
// lines starting with "#" are skipped.
func ParseValidityFile(path string) ([]types.Identifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var ids []types.Identifier

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return nil, ErrBadValidityRow
		}

		ids = append(ids, types.Identifier{FivePrime: fields[0], ThreePrime: fields[1]})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// Allowed reports whether the given identifier is in the matrix. This is a
// pure check with no ordering requirements.
func (m *ValidityMatrix) Allowed(id types.Identifier) bool {
	return m.allowed[id]
}

// Size returns how many identifiers the matrix allows.
func (m *ValidityMatrix) Size() int {
	return len(m.allowed)
}
