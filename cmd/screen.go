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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/demux-automation/screen"
	"github.com/wtsi-hgi/demux-automation/seqio"
)

const ErrInputsRequired = Error("at least one input file or directory is required")

// options for this cmd.
var (
	screenPrimersPath string
	screenOutput      string
)

// screenCmd represents the screen command.
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Report reads that contain primer sequence.",
	Long: `Report reads that contain primer sequence.

This is a read-only check: no read is modified or moved. Every read of
every input file is scanned for every primer sequence (and its reverse
complement), with degenerate IUPAC codes in the primers expanded to their
concrete variants. One CSV row per read with at least one occurrence is
written to the -o file, naming the file, the read and the primers found.

Inputs can be FASTA or FASTQ files, gzipped or not, or directories of such
files. An example command line could look like this:
$ demux-automation screen -o report.csv --primers primers.fasta /reads/dir
`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) == 0 {
			die(ErrInputsRequired)
		}

		sets := parseSetsOrDie(screenPrimersPath)

		scanner, err := screen.New(append(sets.Forward, sets.Reverse...))
		if err != nil {
			die(err)
		}

		paths, err := expandInputPaths(args)
		if err != nil {
			die(err)
		}

		hits, err := scanner.Files(paths)
		if err != nil {
			die(err)
		}

		if err := screen.WriteReport(screenOutput, hits); err != nil {
			die(err)
		}

		infof("screened %d files; %d reads contain primer sequence", len(paths), len(hits))
	},
}

func init() {
	RootCmd.AddCommand(screenCmd)

	// flags specific to this sub-command
	screenCmd.Flags().StringVarP(&screenOutput, outputFlag, "o", "",
		"output CSV report file")
	markFlagRequired(screenCmd, outputFlag)
	screenCmd.Flags().StringVar(&screenPrimersPath, "primers", "",
		"FASTA file of primer sequences")
	markFlagRequired(screenCmd, "primers")
}

// expandInputPaths replaces directory args with the sequence files directly
// inside them, skipping files that are not FASTA or FASTQ.
func expandInputPaths(args []string) ([]string, error) {
	var paths []string

	for _, arg := range args {
		stat, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !stat.IsDir() {
			paths = append(paths, arg)

			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			path := filepath.Join(arg, entry.Name())
			if _, err := seqio.DetectFileType(path); err == nil && !entry.IsDir() {
				paths = append(paths, path)
			}
		}
	}

	return paths, nil
}
