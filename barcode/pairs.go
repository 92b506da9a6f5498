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

package barcode

// PrimerPair is a forward and reverse primer sharing a pair identifier. A
// pair missing either side is incomplete: it stays in the resolved list so
// callers can log its exclusion, but must never be used for linked trimming.
type PrimerPair struct {
	ID      string
	Forward *Set
	Reverse *Set
}

// Complete reports whether both sides of the pair are present.
func (p *PrimerPair) Complete() bool {
	return p.Forward != nil && p.Reverse != nil
}

// ResolvePairs groups the parsed entries into PrimerPairs, one per pair id
// seen in either orientation, preserving first-seen order. It never fails:
// an empty result is a valid degenerate outcome that callers should report
// as a warning.
//
// When a header declared the same pair id for two entries of the same
// orientation, the first entry wins; later ones are ignored rather than
// silently merged.
func ResolvePairs(sets *Sets) []PrimerPair {
	var order []string

	byID := make(map[string]*PrimerPair)

	for i := range sets.Forward {
		entry := &sets.Forward[i]

		for _, id := range entry.PairIDs {
			pair := getPair(byID, &order, id)
			if pair.Forward == nil {
				pair.Forward = entry
			}
		}
	}

	for i := range sets.Reverse {
		entry := &sets.Reverse[i]

		for _, id := range entry.PairIDs {
			pair := getPair(byID, &order, id)
			if pair.Reverse == nil {
				pair.Reverse = entry
			}
		}
	}

	pairs := make([]PrimerPair, len(order))

	for i, id := range order {
		pairs[i] = *byID[id]
	}

	return pairs
}

func getPair(byID map[string]*PrimerPair, order *[]string, id string) *PrimerPair {
	pair, exists := byID[id]
	if !exists {
		pair = &PrimerPair{ID: id}
		byID[id] = pair
		*order = append(*order, id)
	}

	return pair
}

// CompletePairs returns only the pairs usable for linked trimming.
func CompletePairs(pairs []PrimerPair) []PrimerPair {
	var complete []PrimerPair

	for _, pair := range pairs {
		if pair.Complete() {
			complete = append(complete, pair)
		}
	}

	return complete
}

// AllSequences returns every sequence of every pair side present, in pair
// order, forward before reverse. This is the pattern union the
// decontamination failsafe verifies against.
func AllSequences(pairs []PrimerPair) []Set {
	var all []Set

	for _, pair := range pairs {
		if pair.Forward != nil {
			all = append(all, *pair.Forward)
		}

		if pair.Reverse != nil {
			all = append(all, *pair.Reverse)
		}
	}

	return all
}
