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

// package pipeline sequences demultiplexing and decontamination per sample.
// Decontamination of a sample's bins only starts once its demultiplexing
// has fully completed, and a failure in one sample never stops the others.

package pipeline

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/cutadapt"
	"github.com/wtsi-hgi/demux-automation/decon"
	"github.com/wtsi-hgi/demux-automation/demux"
	"github.com/wtsi-hgi/demux-automation/stage"
	"github.com/wtsi-hgi/demux-automation/types"
	"github.com/wtsi-hgi/demux-automation/vsearch"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMissingInput = Error("required input file is missing")

	demuxSubdir = "demux"
)

// Exit statuses distinguish why a run failed: a missing required input is
// recoverable by the submitter, while an external tool not producing its
// expected output needs investigating.
const (
	ExitSuccess       = 0
	ExitMissingInput  = 1
	ExitMissingOutput = 2
)

// TrimmingService runs pattern-trimming commands for both the
// demultiplexing and decontamination stages. cutadapt.Client implements
// this.
type TrimmingService interface {
	Run(cmd *cutadapt.Command) error
}

// Services bundles the external tool clients the pipeline drives.
type Services struct {
	Trimmer   TrimmingService
	Locator   decon.LocateService
	Clusterer decon.ClusterService
}

// Options selects the optional decontamination stages for every sample.
type Options struct {
	Salvage         bool
	Cluster         bool
	ClusterIdentity float64
}

// SampleInput bundles a sample with the plate-specific configuration its
// reads need: barcode sets, primer pairs and the validity matrix.
type SampleInput struct {
	Sample    types.Sample
	Five      *barcode.Sets
	Three     *barcode.Sets
	Pairs     []barcode.PrimerPair
	Validity  *demux.ValidityMatrix
	ErrorRate float64
}

// Pipeline runs demultiplexing then decontamination for samples.
type Pipeline struct {
	services  Services
	workspace *stage.Workspace
	logger    log15.Logger
	opts      Options
}

// New returns a Pipeline that will process samples in the given workspace
// using the given external tool clients.
func New(services Services, workspace *stage.Workspace, logger log15.Logger,
	opts Options) *Pipeline {
	return &Pipeline{
		services:  services,
		workspace: workspace,
		logger:    logger,
		opts:      opts,
	}
}

// Run processes every sample that still needs processing. A failing sample
// is logged and the remaining samples still run; the first error is
// returned for the exit status.
func (p *Pipeline) Run(inputs []*SampleInput) error {
	todo, err := p.todoInputs(inputs)
	if err != nil {
		return err
	}

	var firstErr error

	for _, in := range todo {
		if err := p.ProcessSample(in); err != nil {
			p.logger.Error("sample failed", "sample", in.Sample.Key(), "err", err)

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (p *Pipeline) todoInputs(inputs []*SampleInput) ([]*SampleInput, error) {
	samples := make([]types.Sample, len(inputs))
	for i, in := range inputs {
		samples[i] = in.Sample
	}

	todo, err := p.workspace.Todo(samples)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(todo))
	for _, sample := range todo {
		keep[sample.Key()] = true
	}

	var result []*SampleInput

	for _, in := range inputs {
		if !keep[in.Sample.Key()] {
			p.logger.Info("sample already processed; skipping", "sample", in.Sample.Key())

			continue
		}

		result = append(result, in)
	}

	return result, nil
}

// ProcessSample demultiplexes one sample's reads and decontaminates every
// resulting bin, finalizing each bin's outputs. Any error is fatal for this
// sample only.
func (p *Pipeline) ProcessSample(in *SampleInput) error {
	if _, err := os.Stat(in.Sample.ReadsPath); err != nil {
		return ErrMissingInput
	}

	workDir, err := p.workspace.SampleWorkDir(in.Sample)
	if err != nil {
		return err
	}

	demuxer := demux.New(p.services.Trimmer, in.Five, in.Three, in.Validity, p.logger)
	demuxer.ErrorRate = in.ErrorRate

	bins, err := demuxer.Run(in.Sample.ReadsPath, filepath.Join(workDir, demuxSubdir))
	if err != nil {
		return err
	}

	// every bin exists before the first decontamination starts
	for _, bin := range bins {
		if err := p.decontaminateBin(in, bin); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) decontaminateBin(in *SampleInput, bin demux.Bin) error {
	binDir, err := p.workspace.BinWorkDir(in.Sample, bin.ID)
	if err != nil {
		return err
	}

	d := decon.New(p.services.Trimmer, p.services.Locator, p.services.Clusterer,
		in.Pairs, p.logger, decon.Options{
			Salvage:         p.opts.Salvage,
			Cluster:         p.opts.Cluster,
			ClusterIdentity: p.opts.ClusterIdentity,
			ErrorRate:       in.ErrorRate,
		})

	result, err := d.Run(bin.Path, binDir)
	if err != nil {
		return err
	}

	p.logger.Info("bin decontaminated", "sample", in.Sample.Key(),
		"bin", bin.ID.String(), "clean", result.CleanCount,
		"rejected", result.RejectedCount)

	return p.workspace.FinalizeBin(in.Sample, bin.ID, binDir)
}

// ExitCode maps an error from Run to the pipeline's exit status: 0 for
// success, 2 when an external tool did not produce an expected output, and
// 1 for missing inputs and all other failures.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, cutadapt.ErrExpectedOutput),
		errors.Is(err, vsearch.ErrExpectedOutput),
		errors.Is(err, demux.ErrMissingRoundOneOutput):
		return ExitMissingOutput
	default:
		return ExitMissingInput
	}
}
