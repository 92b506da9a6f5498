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
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/demux-automation/config"
	"github.com/wtsi-hgi/demux-automation/manifest"
	"github.com/wtsi-hgi/demux-automation/samples"
	"github.com/wtsi-hgi/demux-automation/seqdb"
)

const cacheLifetime = 10 * time.Minute

// options for this cmd.
var infoStudy string

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Get sample info.",
	Long: `Get sample info from the sequencing warehouse and the manifest
Google sheet.

This shows you every quality-checked sample of the given study that has a
plate assignment in the manifest, merged with the metadata of its plate:
the barcode and primer files, the plate dimensions and the trimming error
rate.

You can then use the sample and run IDs shown here as input to the run
sub-command.
`,
	Run: func(_ *cobra.Command, _ []string) {
		err := sampleInfo(infoStudy)
		if err != nil {
			die(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(infoCmd)

	// flags specific to this sub-command
	infoCmd.Flags().StringVarP(&infoStudy, "study", "s", "",
		"study ID to show samples for")
	markFlagRequired(infoCmd, "study")
}

func sampleInfo(studyID string) error {
	client, err := samplesClient(studyID)
	if err != nil {
		return err
	}

	defer client.Close()

	clientSamples, err := client.ForStudy(studyID)
	if err != nil {
		return err
	}

	cliPrintf("Samples of study %s with a plate assignment:\n", studyID)

	for _, sample := range clientSamples {
		bytes, _ := json.MarshalIndent(sample, "", "  ") //nolint:errcheck,errchkjson
		cliPrint(string(bytes))
	}

	cliPrint("\n")

	return nil
}

// samplesClient connects to the warehouse database and the manifest sheet
// using the environment's config, prefetching the given study's samples.
func samplesClient(studyID string) (*samples.Client, error) {
	c, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	sc, err := manifest.ServiceCredentialsFromConfig(c)
	if err != nil {
		return nil, err
	}

	m, err := manifest.New(sc)
	if err != nil {
		return nil, err
	}

	db, err := seqdb.New(seqdb.MySQLConfigFromConfig(c))
	if err != nil {
		return nil, err
	}

	return samples.New(db, m, samples.ClientOptions{
		SheetID:       c.SheetID,
		CacheLifetime: cacheLifetime,
		Prefetch:      []string{studyID},
	}), nil
}
