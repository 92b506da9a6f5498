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

package types

type Error string

func (e Error) Error() string { return string(e) }

const ErrInvalidOrientation = Error("invalid orientation")

// Orientation says which end of the target a barcode or primer is expected
// to be found at.
type Orientation string

const (
	OrientationForward Orientation = "Forward"
	OrientationReverse Orientation = "Reverse"
)

// StringToOrientation converts a string to an Orientation.
func StringToOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case OrientationForward:
		return OrientationForward, nil
	case OrientationReverse:
		return OrientationReverse, nil
	default:
		return "", ErrInvalidOrientation
	}
}

// Sample is a sequencing sample we can demultiplex and decontaminate. It
// comes from merging warehouse run information with plate manifest metadata.
type Sample struct {
	SampleID  string
	RunID     string
	StudyID   string
	PlateID   string
	ReadsPath string
}

// Key returns a unique key for this sample, which is the SampleID and RunID
// concatenated with a period.
func (s *Sample) Key() string {
	return s.SampleID + "." + s.RunID
}
