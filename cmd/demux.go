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
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/config"
	"github.com/wtsi-hgi/demux-automation/cutadapt"
	"github.com/wtsi-hgi/demux-automation/demux"
	"github.com/wtsi-hgi/demux-automation/pipeline"
	"github.com/wtsi-hgi/demux-automation/runner"
	"github.com/wtsi-hgi/demux-automation/types"
)

const (
	ErrOneInputRequired = Error("exactly one input reads file is required")

	outputFlag = "output"
)

// options for this cmd.
var (
	demuxFivePath     string
	demuxThreePath    string
	demuxValidityPath string
	demuxErrorRate    float64
	demuxOutput       string
)

// demuxCmd represents the demux command.
var demuxCmd = &cobra.Command{
	Use:   "demux",
	Short: "Demultiplex reads by barcode combination.",
	Long: `Demultiplex reads by barcode combination.

cutadapt must be in your PATH (or pointed at with the
DEMUX_AUTOMATION_CUTADAPT environment variable).

Reads are split in two rounds: first by the forward entries of the 5'
barcode file, then each resulting bin by the reverse entries of the 3'
barcode file. Bins whose barcode combination the plate layout cannot
produce, and empty bins, are dropped.

By default every 5'/3' label combination is considered valid. Pass a
validity file with --validity to restrict this: one tab-separated
"fiveLabel<TAB>threeLabel" pair per line, with blank lines and lines
starting with "#" ignored.

An example command line could look like this:
$ demux-automation demux -o /output/dir --five 5bc.fasta --three 3bc.fasta \
    sample.fastq.gz

On success, one line per kept bin is printed to STDOUT: the identifier, the
read count and the path to the bin's reads.
`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die(ErrOneInputRequired)
		}

		five := parseSetsOrDie(demuxFivePath)
		three := parseSetsOrDie(demuxThreePath)

		t := config.ToolsFromEnv()
		d := demux.New(cutadapt.New(t.CutadaptExe, runner.Local{}), five, three,
			validityMatrix(demuxValidityPath, five, three), appLogger)
		d.ErrorRate = demuxErrorRate

		bins, err := d.Run(args[0], demuxOutput)
		if err != nil {
			dieWithCode(err, pipeline.ExitCode(err))
		}

		for _, bin := range bins {
			cliPrintf("%s\t%d\t%s\n", bin.ID.String(), bin.Count, bin.Path)
		}
	},
}

func init() {
	RootCmd.AddCommand(demuxCmd)

	// flags specific to this sub-command
	demuxCmd.Flags().StringVarP(&demuxOutput, outputFlag, "o", "",
		"output directory for demultiplexed bins")
	markFlagRequired(demuxCmd, outputFlag)
	demuxCmd.Flags().StringVar(&demuxFivePath, "five", "",
		"FASTA file of 5' barcodes")
	markFlagRequired(demuxCmd, "five")
	demuxCmd.Flags().StringVar(&demuxThreePath, "three", "",
		"FASTA file of 3' barcodes")
	markFlagRequired(demuxCmd, "three")
	demuxCmd.Flags().StringVar(&demuxValidityPath, "validity", "",
		"file of valid tab-separated fiveLabel/threeLabel pairs, one per line")
	demuxCmd.Flags().Float64Var(&demuxErrorRate, "error-rate", 0,
		"allowed error rate passed to cutadapt (0 means cutadapt's default)")
}

func parseSetsOrDie(path string) *barcode.Sets {
	sets, err := barcode.ParseSetsFile(path)
	if err != nil {
		die(err)
	}

	return sets
}

// validityMatrix builds the combinatorial-validity filter: from the given
// file when one was supplied, otherwise the full cross product of labels.
func validityMatrix(path string, five, three *barcode.Sets) *demux.ValidityMatrix {
	if path == "" {
		return demux.NewValidityMatrix(demux.Cross(
			five.Labels(types.OrientationForward),
			three.Labels(types.OrientationReverse)))
	}

	ids, err := demux.ParseValidityFile(path)
	if err != nil {
		die(err)
	}

	return demux.NewValidityMatrix(ids)
}

func markFlagRequired(cmd *cobra.Command, flagName string) {
	err := cmd.MarkFlagRequired(flagName)
	if err != nil {
		die(err)
	}
}
