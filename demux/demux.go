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

// package demux splits reads by their 5' barcode, then splits each resulting
// bin by 3' barcode, and keeps only the combinations that can physically
// exist on the source plate.

package demux

import (
	"os"
	"path/filepath"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/cutadapt"
	"github.com/wtsi-hgi/demux-automation/seqio"
	"github.com/wtsi-hgi/demux-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrNoReadsAssigned       = Error("no reads were assigned to any 5' barcode")
	ErrMissingRoundOneOutput = Error("round one output directory is missing")

	roundOneSubdir = "round1"
	roundTwoSubdir = "round2"
	dirPerm        = 0755
)

// TrimmingService runs pattern-trimming commands. cutadapt.Client implements
// this.
type TrimmingService interface {
	Run(cmd *cutadapt.Command) error
}

// Bin is one demultiplexed output: the reads assigned to an identifier.
type Bin struct {
	ID    types.Identifier
	Path  string
	Count int
}

// Demultiplexer drives the two demultiplexing rounds for one sample.
type Demultiplexer struct {
	trimmer  TrimmingService
	five     *barcode.Sets
	three    *barcode.Sets
	validity *ValidityMatrix
	logger   log15.Logger

	// ErrorRate is passed through to the trimming engine for both rounds.
	ErrorRate float64
}

// New returns a Demultiplexer that will split reads using the forward
// entries of five as 5' barcodes and the reverse entries of three as 3'
// barcodes, keeping only identifiers allowed by the validity matrix.
//
// The 3' barcode sequences are used verbatim as end-anchored patterns, so
// the barcode file must give them in read orientation: the literal bases at
// the 3' end of a read, not their reverse complement. Primer files are
// different; reverse primers there are given in their own orientation.
func New(trimmer TrimmingService, five, three *barcode.Sets,
	validity *ValidityMatrix, logger log15.Logger) *Demultiplexer {
	return &Demultiplexer{
		trimmer:  trimmer,
		five:     five,
		three:    three,
		validity: validity,
		logger:   logger,
	}
}

// Run demultiplexes the reads at readsPath into outputDir and returns the
// validity-filtered bins, keyed by (5'-label, 3'-label).
//
// Round two for a label only starts after round one has completed, and the
// validity filter only runs after every round-two invocation has completed.
// Re-running with identical inputs reproduces identical partitioning:
// nothing here is randomised or order-dependent.
//
// An empty filtered result is not an error; the sample simply yielded no
// usable reads, which is logged as a warning.
func (d *Demultiplexer) Run(readsPath, outputDir string) ([]Bin, error) {
	ext, err := outputExtension(readsPath)
	if err != nil {
		return nil, err
	}

	workList, err := d.roundOne(readsPath, outputDir, ext)
	if err != nil {
		return nil, err
	}

	var bins []Bin

	for _, label := range workList {
		labelBins, err := d.roundTwo(label, outputDir, ext)
		if err != nil {
			return nil, err
		}

		bins = append(bins, labelBins...)
	}

	return d.filterBins(bins), nil
}

// outputExtension gives the uncompressed extension bins will be written
// with, matching the input format.
func outputExtension(readsPath string) (string, error) {
	ft, err := seqio.DetectFileType(readsPath)
	if err != nil {
		return "", err
	}

	if ft == seqio.FileTypeFastq || ft == seqio.FileTypeFastqGz {
		return ".fastq", nil
	}

	return ".fasta", nil
}

// roundOne splits the full read set by 5' barcode and returns the labels
// that received at least one read, which is round two's work list.
func (d *Demultiplexer) roundOne(readsPath, outputDir, ext string) ([]string, error) {
	dir := filepath.Join(outputDir, roundOneSubdir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}

	cmd := &cutadapt.Command{
		FivePrime: adapters(d.five.Forward),
		ErrorRate: d.ErrorRate,
		Revcomp:   true,
		Input:     readsPath,
		Output:    filepath.Join(dir, cutadapt.NameTemplate+ext),
	}

	if err := d.trimmer.Run(cmd); err != nil {
		return nil, err
	}

	return d.harvestWorkList(dir, ext)
}

// harvestWorkList finds the non-unknown round-one bins that have at least
// one read. An empty work list means nothing was assignable, which is fatal
// for the sample.
func (d *Demultiplexer) harvestWorkList(dir, ext string) ([]string, error) {
	var workList []string

	for _, label := range d.five.Labels(types.OrientationForward) {
		count, err := seqio.Count(filepath.Join(dir, label+ext))
		if err != nil {
			return nil, err
		}

		d.logger.Info("round one bin", "label", label, "reads", count)

		if count > 0 {
			workList = append(workList, label)
		}
	}

	unknownCount, err := seqio.Count(filepath.Join(dir, cutadapt.UnknownName+ext))
	if err != nil {
		return nil, err
	}

	d.logger.Info("round one bin", "label", cutadapt.UnknownName, "reads", unknownCount)

	if len(workList) == 0 {
		return nil, ErrNoReadsAssigned
	}

	return workList, nil
}

// roundTwo splits one harvested label's bin by 3' barcode. Labels are
// independent of each other: no state crosses from one roundTwo call to
// another.
func (d *Demultiplexer) roundTwo(label, outputDir, ext string) ([]Bin, error) {
	input := filepath.Join(outputDir, roundOneSubdir, label+ext)
	if _, err := os.Stat(input); err != nil {
		return nil, ErrMissingRoundOneOutput
	}

	dir := filepath.Join(outputDir, roundTwoSubdir, label)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}

	cmd := &cutadapt.Command{
		ThreePrime: adapters(d.three.Reverse),
		ErrorRate:  d.ErrorRate,
		Input:      input,
		Output:     filepath.Join(dir, cutadapt.NameTemplate+ext),
	}

	if err := d.trimmer.Run(cmd); err != nil {
		return nil, err
	}

	return d.collectSubBins(label, dir, ext)
}

func (d *Demultiplexer) collectSubBins(label, dir, ext string) ([]Bin, error) {
	labels := append(d.three.Labels(types.OrientationReverse), cutadapt.UnknownName)
	bins := make([]Bin, 0, len(labels))

	for _, threeLabel := range labels {
		path := filepath.Join(dir, threeLabel+ext)

		count, err := seqio.Count(path)
		if err != nil {
			return nil, err
		}

		bins = append(bins, Bin{
			ID:    types.Identifier{FivePrime: label, ThreePrime: threeLabel},
			Path:  path,
			Count: count,
		})
	}

	return bins, nil
}

// filterBins applies the combinatorial-validity filter: bins with unknown on
// either axis, bins whose identifier the plate layout cannot produce, and
// empty bins are all terminal. The filter is pure and order-independent, and
// must only be called once every round-two invocation has finished.
func (d *Demultiplexer) filterBins(bins []Bin) []Bin {
	var kept []Bin

	for _, bin := range bins {
		switch {
		case bin.ID.HasUnknown():
			d.logger.Info("dropped bin", "identifier", bin.ID.String(), "reason", "unknown barcode", "reads", bin.Count)
		case !d.validity.Allowed(bin.ID):
			d.logger.Info("dropped bin", "identifier", bin.ID.String(), "reason", "combinatorially invalid", "reads", bin.Count)
		case bin.Count == 0:
			d.logger.Info("dropped bin", "identifier", bin.ID.String(), "reason", "empty")
		default:
			d.logger.Info("kept bin", "identifier", bin.ID.String(), "reads", bin.Count)
			kept = append(kept, bin)
		}
	}

	if len(kept) == 0 {
		d.logger.Warn("sample yielded no usable reads after validity filtering")
	}

	return kept
}

func adapters(entries []barcode.Set) []cutadapt.Adapter {
	result := make([]cutadapt.Adapter, len(entries))

	for i, entry := range entries {
		result[i] = cutadapt.Adapter{
			Name:     entry.Label,
			Sequence: entry.Sequence,
			Anchored: true,
		}
	}

	return result
}
