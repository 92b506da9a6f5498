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

import "github.com/wtsi-hgi/demux-automation/types"

const (
	ErrNoData       = Error("no data found in sheet")
	ErrMissingPlate = Error("sample's plate not found in plates sheet")

	platesSheetName  = "plates"
	samplesSheetName = "samples"
)

// PlateMetaData describes one physical plate: where its barcode and primer
// files live, how it is laid out, and the pattern-matching error rate its
// barcodes were designed for.
type PlateMetaData struct {
	PlateID               string
	FivePrimeBarcodePath  string
	ThreePrimeBarcodePath string
	PrimerPath            string
	Rows                  int
	Columns               int
	ErrorRate             float64
}

// ValidityPairs returns the identifiers that can physically exist on this
// plate: the first Columns of the given 5' labels crossed with the first
// Rows of the given 3' labels. Labels should be in the order they appear in
// the plate's barcode files. Zero Rows or Columns means no limit on that
// axis.
func (p *PlateMetaData) ValidityPairs(five, three []string) []types.Identifier {
	if p.Columns > 0 && p.Columns < len(five) {
		five = five[:p.Columns]
	}

	if p.Rows > 0 && p.Rows < len(three) {
		three = three[:p.Rows]
	}

	ids := make([]types.Identifier, 0, len(five)*len(three))

	for _, f := range five {
		for _, t := range three {
			ids = append(ids, types.Identifier{FivePrime: f, ThreePrime: t})
		}
	}

	return ids
}

// MetaData is the merged contents of the "plates" and "samples" sheets:
// every plate keyed by plate id, and each sample's plate assignment keyed by
// Sample.Key().
type MetaData struct {
	Plates       map[string]*PlateMetaData
	SamplePlates map[string]string
}

// PlateForSample returns the plate the given sample was prepared on, or nil
// if the manifest does not mention the sample.
func (md *MetaData) PlateForSample(sample types.Sample) *PlateMetaData {
	plateID, ok := md.SamplePlates[sample.Key()]
	if !ok {
		return nil
	}

	return md.Plates[plateID]
}

// DemuxMetaData reads sheets "plates" and "samples" from the sheet with the
// given id and extracts the metadata needed to demultiplex and decontaminate
// each sample's reads.
func (m *Manifest) DemuxMetaData(sheetID string) (*MetaData, error) {
	plates, err := m.getPlateMetaData(sheetID)
	if err != nil {
		return nil, err
	}

	samplePlates, err := m.getSamplePlates(sheetID, plates)
	if err != nil {
		return nil, err
	}

	return &MetaData{
		Plates:       plates,
		SamplePlates: samplePlates,
	}, nil
}

func (m *Manifest) getPlateMetaData(sheetID string) (map[string]*PlateMetaData, error) {
	sheet, err := m.Read(sheetID, platesSheetName)
	if err != nil {
		return nil, err
	}

	return platesFromSheet(sheet)
}

func platesFromSheet(sheet *Sheet) (map[string]*PlateMetaData, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrNoData
	}

	plateRows, err := sheet.Columns(
		"plate_id",
		"five_prime_barcodes",
		"three_prime_barcodes",
		"primer_pairs",
		"rows",
		"columns",
		"error_rate",
	)
	if err != nil {
		return nil, err
	}

	plates := make(map[string]*PlateMetaData, len(plateRows))

	c := converter{}

	for _, row := range plateRows {
		plates[row[0]] = &PlateMetaData{
			PlateID:               row[0],
			FivePrimeBarcodePath:  row[1],
			ThreePrimeBarcodePath: row[2],
			PrimerPath:            row[3],
			Rows:                  c.ToInt(row[4]),
			Columns:               c.ToInt(row[5]),
			ErrorRate:             c.ToFloat(row[6]),
		}
	}

	return plates, c.Err
}

func (m *Manifest) getSamplePlates(sheetID string,
	plates map[string]*PlateMetaData) (map[string]string, error) {
	sheet, err := m.Read(sheetID, samplesSheetName)
	if err != nil {
		return nil, err
	}

	return samplePlatesFromSheet(sheet, plates)
}

func samplePlatesFromSheet(sheet *Sheet,
	plates map[string]*PlateMetaData) (map[string]string, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, ErrNoData
	}

	sampleRows, err := sheet.Columns("sample_id", "run_id", "plate_id")
	if err != nil {
		return nil, err
	}

	samplePlates := make(map[string]string, len(sampleRows))

	for _, row := range sampleRows {
		if _, ok := plates[row[2]]; !ok {
			return nil, ErrMissingPlate
		}

		sample := types.Sample{SampleID: row[0], RunID: row[1]}
		samplePlates[sample.Key()] = row[2]
	}

	return samplePlates, nil
}
