/*******************************************************************************
 * Copyright (c) 2025 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
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

package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/config"
	"github.com/wtsi-hgi/demux-automation/cutadapt"
	"github.com/wtsi-hgi/demux-automation/decon"
	"github.com/wtsi-hgi/demux-automation/demux"
	"github.com/wtsi-hgi/demux-automation/manifest"
	"github.com/wtsi-hgi/demux-automation/pipeline"
	"github.com/wtsi-hgi/demux-automation/runner"
	"github.com/wtsi-hgi/demux-automation/samples"
	"github.com/wtsi-hgi/demux-automation/seqkit"
	"github.com/wtsi-hgi/demux-automation/stage"
	"github.com/wtsi-hgi/demux-automation/types"
	"github.com/wtsi-hgi/demux-automation/vsearch"
)

const ErrSamplesRequired = Error("at least one sampleID:runID pair is required")

// options for this cmd.
var (
	runStudy     string
	runOutput    string
	runWorkDir   string
	runSalvage   bool
	runCluster   bool
	runClusterID float64
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline on selected samples.",
	Long: `Run the full pipeline on selected samples.

cutadapt, seqkit and vsearch must be in your PATH (or pointed at with
environment variables; see the main help).

Given desired samples, each sample's reads are demultiplexed by the barcode
files of its plate (from the manifest Google sheet), and every resulting
bin is primer-trimmed, verified and finalized into the -o directory, under
a sub-directory per sample and identifier. The samples must be from the
same study.

Samples should be supplied as a series of sampleID:runID pairs. An example
command line could look like this:
$ demux-automation run -o /output/dir --study 5001 sample1:run1 sample2:run1

Working files are written under the -w directory (the current directory by
default) and are not cleaned up, so interrupted runs can be investigated.
Samples whose outputs already exist in the output directory are skipped,
making resubmission after a partial failure safe.

A failing sample does not stop the others. The exit status is 0 when every
sample succeeded, 2 when an external tool did not produce an expected
output, and 1 otherwise.
`,
	Run: func(_ *cobra.Command, sampleRunStrs []string) {
		desired := desiredSamples(runStudy, sampleRunStrs)

		inputs, err := pipelineInputs(desired)
		if err != nil {
			die(err)
		}

		workspace := stage.New(runWorkDir, runOutput,
			decon.RequiredOutputs(), decon.OptionalOutputs())

		t := config.ToolsFromEnv()
		p := pipeline.New(pipeline.Services{
			Trimmer:   cutadapt.New(t.CutadaptExe, runner.Local{}),
			Locator:   seqkit.New(t.SeqkitExe, runner.Local{}),
			Clusterer: vsearch.New(t.VsearchExe, runner.Local{}),
		}, workspace, appLogger, pipeline.Options{
			Salvage:         runSalvage,
			Cluster:         runCluster,
			ClusterIdentity: runClusterID,
		})

		if err := p.Run(inputs); err != nil {
			dieWithCode(err, pipeline.ExitCode(err))
		}

		infof("%d samples processed; outputs in %s", len(inputs), runOutput)
	},
}

func init() {
	RootCmd.AddCommand(runCmd)

	// flags specific to this sub-command
	runCmd.Flags().StringVarP(&runOutput, outputFlag, "o", "",
		"output directory for finalized results")
	markFlagRequired(runCmd, outputFlag)
	runCmd.Flags().StringVarP(&runStudy, "study", "s", "",
		"study ID the samples belong to")
	markFlagRequired(runCmd, "study")
	runCmd.Flags().StringVarP(&runWorkDir, "workdir", "w", ".",
		"directory for working files")
	runCmd.Flags().BoolVar(&runSalvage, "salvage", false,
		"re-trim unmatched reads against individual primers")
	runCmd.Flags().BoolVar(&runCluster, "cluster", false,
		"collapse each clean set into a non-redundant one with vsearch")
	runCmd.Flags().Float64Var(&runClusterID, "cluster-id", defaultClusterIdentity,
		"similarity threshold for --cluster")
}

func desiredSamples(studyID string, sampleRunStrs []string) samples.Samples {
	sampleRuns := sampleRunStrsToSampleRuns(sampleRunStrs)

	client, err := samplesClient(studyID)
	if err != nil {
		die(err)
	}

	defer client.Close()

	all, err := client.ForStudy(studyID)
	if err != nil {
		die(err)
	}

	desired, err := all.Filter(sampleRuns)
	if err != nil {
		die(err)
	}

	return desired
}

func sampleRunStrsToSampleRuns(sampleRunStrs []string) []samples.SampleRun {
	result := make([]samples.SampleRun, 0, len(sampleRunStrs))
	done := make(map[string]bool)

	for _, sampleRunStr := range sampleRunStrs {
		if done[sampleRunStr] {
			continue
		}

		parts := strings.Split(sampleRunStr, ":")
		if len(parts) != 2 {
			dief("invalid sampleID:runID pair: %s", sampleRunStr)
		}

		result = append(result, samples.SampleRun{Sample: parts[0], Run: parts[1]})
		done[sampleRunStr] = true
	}

	if len(result) == 0 {
		die(ErrSamplesRequired)
	}

	return result
}

// plateFiles is the parsed form of one plate's barcode and primer files,
// shared between samples of the same plate.
type plateFiles struct {
	five     *barcode.Sets
	three    *barcode.Sets
	pairs    []barcode.PrimerPair
	validity *demux.ValidityMatrix
}

// pipelineInputs pairs each sample with the parsed files and validity
// matrix of its plate, parsing each plate's files only once.
func pipelineInputs(desired samples.Samples) ([]*pipeline.SampleInput, error) {
	plates := make(map[string]*plateFiles)
	inputs := make([]*pipeline.SampleInput, 0, len(desired))

	for _, sample := range desired {
		pf, err := filesForPlate(plates, sample.Plate)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, &pipeline.SampleInput{
			Sample:    sample.Sample,
			Five:      pf.five,
			Three:     pf.three,
			Pairs:     pf.pairs,
			Validity:  pf.validity,
			ErrorRate: sample.Plate.ErrorRate,
		})
	}

	return inputs, nil
}

func filesForPlate(plates map[string]*plateFiles,
	plate *manifest.PlateMetaData) (*plateFiles, error) {
	if pf, ok := plates[plate.PlateID]; ok {
		return pf, nil
	}

	five, err := barcode.ParseSetsFile(plate.FivePrimeBarcodePath)
	if err != nil {
		return nil, err
	}

	three, err := barcode.ParseSetsFile(plate.ThreePrimeBarcodePath)
	if err != nil {
		return nil, err
	}

	primers, err := barcode.ParseSetsFile(plate.PrimerPath)
	if err != nil {
		return nil, err
	}

	pf := &plateFiles{
		five:  five,
		three: three,
		pairs: barcode.ResolvePairs(primers),
		validity: demux.NewValidityMatrix(plate.ValidityPairs(
			five.Labels(types.OrientationForward),
			three.Labels(types.OrientationReverse))),
	}
	plates[plate.PlateID] = pf

	return pf, nil
}
