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

// package cmd is the cobra file that enables subcommands and handles
// command-line args.

package cmd

import (
	"fmt"
	"os"

	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"
)

type Error string

func (e Error) Error() string { return string(e) }

// appLogger is used for logging events in our commands.
var appLogger = log15.New()

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "demux-automation",
	Short: "demux-automation demultiplexes and decontaminates amplicon reads",
	Long: `demux-automation demultiplexes and decontaminates amplicon reads.

Metabarcoding runs pool many specimens into one sequencing library, tagging
each with a combination of 5' and 3' barcodes. This tool splits a sample's
reads back out by barcode combination, strips the amplification primers, and
quarantines any read that still carries primer sequence afterwards.

cutadapt, seqkit and vsearch must be in your PATH (or pointed at with the
DEMUX_AUTOMATION_CUTADAPT, DEMUX_AUTOMATION_SEQKIT and
DEMUX_AUTOMATION_VSEARCH environment variables).

Run the "info" sub-command to see the samples available for a study, then
pass desired samples to the "run" sub-command to process them. The "demux",
"decontaminate" and "screen" sub-commands run individual steps on local
files.
`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die(err)
	}
}

func init() {
	// set up logging to stderr
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))
}

// cliPrint outputs the message to STDOUT.
func cliPrint(msg string) {
	fmt.Fprint(os.Stdout, msg)
}

// cliPrintf is like cliPrint, but interprets placeholders in msg.
func cliPrintf(msg string, a ...interface{}) {
	fmt.Fprintf(os.Stdout, msg, a...)
}

// infof is a convenience to log a formatted message at the Info level.
func infof(msg string, a ...interface{}) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// die is a convenience to log an error at the Error level and exit non zero.
func die(err error) {
	appLogger.Error(err.Error())
	os.Exit(1)
}

// dief is like die, but takes a format string.
func dief(msg string, a ...interface{}) {
	appLogger.Error(fmt.Sprintf(msg, a...))
	os.Exit(1)
}

// dieWithCode logs the error and exits with the given status.
func dieWithCode(err error, code int) {
	appLogger.Error(err.Error())
	os.Exit(code)
}
