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

// UnknownLabel is the reserved bin label cutadapt gives reads that matched no
// barcode. Bins with this label on either axis are terminal.
const UnknownLabel = "unknown"

// Identifier is the composite key of a demultiplexed bin: the 5' barcode
// label from round one and, after round two, the 3' barcode label.
type Identifier struct {
	FivePrime  string
	ThreePrime string
}

// String returns the identifier in its on-disk "five-three" form.
func (id Identifier) String() string {
	if id.ThreePrime == "" {
		return id.FivePrime
	}

	return id.FivePrime + "-" + id.ThreePrime
}

// HasUnknown reports whether either axis of the identifier is the reserved
// unknown label.
func (id Identifier) HasUnknown() bool {
	return id.FivePrime == UnknownLabel || id.ThreePrime == UnknownLabel
}
