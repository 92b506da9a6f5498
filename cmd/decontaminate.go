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
	"github.com/wtsi-hgi/demux-automation/decon"
	"github.com/wtsi-hgi/demux-automation/pipeline"
	"github.com/wtsi-hgi/demux-automation/runner"
	"github.com/wtsi-hgi/demux-automation/seqkit"
	"github.com/wtsi-hgi/demux-automation/vsearch"
)

const defaultClusterIdentity = 0.97

// options for this cmd.
var (
	deconPrimersPath string
	deconOutput      string
	deconErrorRate   float64
	deconSalvage     bool
	deconCluster     bool
	deconClusterID   float64
)

// decontaminateCmd represents the decontaminate command.
var decontaminateCmd = &cobra.Command{
	Use:   "decontaminate",
	Short: "Strip primers from a demultiplexed bin and quarantine leftovers.",
	Long: `Strip primers from a demultiplexed bin and quarantine leftovers.

cutadapt and seqkit must be in your PATH (and vsearch too if you use
--cluster), or pointed at with the DEMUX_AUTOMATION_CUTADAPT,
DEMUX_AUTOMATION_SEQKIT and DEMUX_AUTOMATION_VSEARCH environment variables.

The primer FASTA file must mark each entry's orientation and pair
membership in its headers, the same format the barcode files use. Complete
pairs are trimmed as linked forward...reverse patterns; an entry without a
partner is excluded with a warning.

Every trimmed read is then verified: any read still containing a primer
sequence anywhere within it is written to rejected.fasta (with the hit
details in hits.tsv), and the rest to clean.fasta.

With --salvage, reads the linked trimming could not match are re-trimmed
against each primer individually and saved to recategorized.fasta, kept
separate from the clean set. With --cluster, the clean set is additionally
collapsed into clean_nonredundant.fasta with vsearch.

An example command line could look like this:
$ demux-automation decontaminate -o /output/dir --primers primers.fasta \
    --salvage F1.R1.fasta
`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die(ErrOneInputRequired)
		}

		pairs := barcode.ResolvePairs(parseSetsOrDie(deconPrimersPath))

		t := config.ToolsFromEnv()
		d := decon.New(
			cutadapt.New(t.CutadaptExe, runner.Local{}),
			seqkit.New(t.SeqkitExe, runner.Local{}),
			vsearch.New(t.VsearchExe, runner.Local{}),
			pairs, appLogger, decon.Options{
				Salvage:         deconSalvage,
				Cluster:         deconCluster,
				ClusterIdentity: deconClusterID,
				ErrorRate:       deconErrorRate,
			})

		result, err := d.Run(args[0], deconOutput)
		if err != nil {
			dieWithCode(err, pipeline.ExitCode(err))
		}

		cliPrintf("clean\t%d\t%s\n", result.CleanCount, result.CleanPath)
		cliPrintf("rejected\t%d\t%s\n", result.RejectedCount, result.RejectedPath)

		if result.RecategorizedPath != "" {
			cliPrintf("recategorized\t%d\t%s\n", result.RecategorizedCount,
				result.RecategorizedPath)
		}
	},
}

func init() {
	RootCmd.AddCommand(decontaminateCmd)

	// flags specific to this sub-command
	decontaminateCmd.Flags().StringVarP(&deconOutput, outputFlag, "o", "",
		"output directory")
	markFlagRequired(decontaminateCmd, outputFlag)
	decontaminateCmd.Flags().StringVar(&deconPrimersPath, "primers", "",
		"FASTA file of paired primer sequences")
	markFlagRequired(decontaminateCmd, "primers")
	decontaminateCmd.Flags().Float64Var(&deconErrorRate, "error-rate", 0,
		"allowed error rate passed to cutadapt (0 means cutadapt's default)")
	decontaminateCmd.Flags().BoolVar(&deconSalvage, "salvage", false,
		"re-trim unmatched reads against individual primers")
	decontaminateCmd.Flags().BoolVar(&deconCluster, "cluster", false,
		"collapse the clean set into a non-redundant one with vsearch")
	decontaminateCmd.Flags().Float64Var(&deconClusterID, "cluster-id", defaultClusterIdentity,
		"similarity threshold for --cluster")
}
