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

package decon

const ErrBadTransition = Error("invalid decontamination state transition")

// State is the stage a sequence collection has reached within the
// decontamination pipeline. Each transition takes an immutable collection
// and produces new ones; collections only ever move forward.
type State string

const (
	StateParsed          State = "Parsed"
	StateRoundOneTrimmed State = "RoundOneTrimmed"
	StateVerified        State = "Verified"
	StateClean           State = "Clean"
	StateRejected        State = "Rejected"
	StateRecategorized   State = "Recategorized"
	StateClustered       State = "Clustered"
)

// transitions: the trimmed collection goes on to verification and from
// there is partitioned into clean and rejected; the untrimmed collection
// can only be salvaged into recategorized; only clean can be clustered.
var transitions = map[State][]State{
	StateParsed:          {StateRoundOneTrimmed},
	StateRoundOneTrimmed: {StateVerified, StateRecategorized},
	StateVerified:        {StateClean, StateRejected},
	StateClean:           {StateClustered},
}

// Advance moves a collection from its current state to next, or errors if
// the pipeline does not permit that transition.
func Advance(current, next State) (State, error) {
	for _, allowed := range transitions[current] {
		if next == allowed {
			return next, nil
		}
	}

	return current, ErrBadTransition
}
