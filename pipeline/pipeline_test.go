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

package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/cutadapt"
	"github.com/wtsi-hgi/demux-automation/decon"
	"github.com/wtsi-hgi/demux-automation/demux"
	"github.com/wtsi-hgi/demux-automation/seqio"
	"github.com/wtsi-hgi/demux-automation/seqkit"
	"github.com/wtsi-hgi/demux-automation/stage"
	"github.com/wtsi-hgi/demux-automation/types"
	"github.com/wtsi-hgi/demux-automation/vsearch"
)

// routingTrimmer stands in for cutadapt across every stage: for each pattern
// name in a command it writes the scripted records, and it routes unmatched
// reads to the unknown bin or the untrimmed file depending on what the
// command asked for.
type routingTrimmer struct {
	assignments map[string][]seqio.Record
	commands    []*cutadapt.Command
}

func (r *routingTrimmer) Run(cmd *cutadapt.Command) error {
	r.commands = append(r.commands, cmd)

	names := patternNames(cmd)

	if cmd.UntrimmedOutput != "" {
		if err := seqio.WriteFasta(cmd.UntrimmedOutput, r.assignments[cutadapt.UnknownName]); err != nil {
			return err
		}
	} else if !cmd.DiscardUntrimmed {
		names = append(names, cutadapt.UnknownName)
	}

	for _, name := range names {
		path := strings.ReplaceAll(cmd.Output, cutadapt.NameTemplate, name)
		if err := seqio.WriteFasta(path, r.assignments[name]); err != nil {
			return err
		}
	}

	return nil
}

func patternNames(cmd *cutadapt.Command) []string {
	var names []string

	for _, a := range cmd.FivePrime {
		names = append(names, a.Name)
	}

	for _, l := range cmd.LinkedPairs {
		names = append(names, l.Name)
	}

	for _, a := range cmd.ThreePrime {
		names = append(names, a.Name)
	}

	return names
}

type noHitLocator struct{}

func (noHitLocator) Locate(patternFile, input string) ([]seqkit.Hit, error) {
	return nil, nil
}

type noopClusterer struct{}

func (noopClusterer) Cluster(input string, identity float64, centroids string) error {
	records, err := seqio.ReadAll(input)
	if err != nil {
		return err
	}

	return seqio.WriteFasta(centroids, records)
}

func testInput(sample types.Sample) *SampleInput {
	return &SampleInput{
		Sample: sample,
		Five: &barcode.Sets{Forward: []barcode.Set{
			{Label: "F1", Sequence: "ACGA", Orientation: types.OrientationForward},
		}},
		Three: &barcode.Sets{Reverse: []barcode.Set{
			{Label: "R1", Sequence: "TGGT", Orientation: types.OrientationReverse},
		}},
		Pairs: []barcode.PrimerPair{{
			ID:      "A",
			Forward: &barcode.Set{Label: "primerF", Sequence: "AAAA", Orientation: types.OrientationForward},
			Reverse: &barcode.Set{Label: "primerR", Sequence: "TTTT", Orientation: types.OrientationReverse},
		}},
		Validity:  demux.NewValidityMatrix([]types.Identifier{{FivePrime: "F1", ThreePrime: "R1"}}),
		ErrorRate: 0.15,
	}
}

func quietLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	return logger
}

func TestPipeline(t *testing.T) {
	required := decon.RequiredOutputs()
	optional := decon.OptionalOutputs()

	Convey("Given one readable sample and one with missing reads", t, func() {
		dir := t.TempDir()
		readsPath := filepath.Join(dir, "reads.fasta")

		err := seqio.WriteFasta(readsPath, []seqio.Record{
			{Header: "r1", Seq: "GATTACA"},
			{Header: "r2", Seq: "CATCAT"},
		})
		So(err, ShouldBeNil)

		good := testInput(types.Sample{SampleID: "s1", RunID: "run1", ReadsPath: readsPath})
		bad := testInput(types.Sample{SampleID: "s2", RunID: "run1",
			ReadsPath: filepath.Join(dir, "absent.fasta")})

		trimmer := &routingTrimmer{assignments: map[string][]seqio.Record{
			"F1": {{Header: "r1", Seq: "GATTACA"}, {Header: "r2", Seq: "CATCAT"}},
			"R1": {{Header: "r1", Seq: "GATTACA"}, {Header: "r2", Seq: "CATCAT"}},
			"A":  {{Header: "r1", Seq: "GATTACA"}, {Header: "r2", Seq: "CATCAT"}},
		}}

		workspace := stage.New(filepath.Join(dir, "work"), filepath.Join(dir, "final"),
			required, optional)
		p := New(Services{Trimmer: trimmer, Locator: noHitLocator{}, Clusterer: noopClusterer{}},
			workspace, quietLogger(), Options{Cluster: true, ClusterIdentity: 0.97})

		runErr := p.Run([]*SampleInput{good, bad})

		Convey("the missing-reads sample fails without stopping the other", func() {
			So(runErr, ShouldEqual, ErrMissingInput)

			clean, err := seqio.ReadAll(filepath.Join(workspace.BinFinalDir(good.Sample,
				types.Identifier{FivePrime: "F1", ThreePrime: "R1"}), "clean.fasta"))
			So(err, ShouldBeNil)
			So(clean, ShouldHaveLength, 2)
		})

		Convey("demultiplexing fully completes before decontamination starts", func() {
			So(len(trimmer.commands), ShouldEqual, 3)
			So(trimmer.commands[0].FivePrime, ShouldHaveLength, 1)
			So(trimmer.commands[1].ThreePrime, ShouldHaveLength, 1)
			So(trimmer.commands[2].LinkedPairs, ShouldHaveLength, 1)
		})

		Convey("every required and optional output reaches the final dir", func() {
			binDir := workspace.BinFinalDir(good.Sample,
				types.Identifier{FivePrime: "F1", ThreePrime: "R1"})

			for _, name := range append(required, "clean_nonredundant.fasta") {
				_, err := os.Stat(filepath.Join(binDir, name))
				So(err, ShouldBeNil)
			}
		})

		Convey("a second run skips the finalized sample entirely", func() {
			before := len(trimmer.commands)

			So(p.Run([]*SampleInput{good}), ShouldBeNil)
			So(len(trimmer.commands), ShouldEqual, before)
		})
	})

	Convey("A demultiplexing failure is fatal for that sample only", t, func() {
		dir := t.TempDir()
		readsPath := filepath.Join(dir, "reads.fasta")

		err := seqio.WriteFasta(readsPath, []seqio.Record{{Header: "r1", Seq: "GATTACA"}})
		So(err, ShouldBeNil)

		in := testInput(types.Sample{SampleID: "s1", RunID: "run1", ReadsPath: readsPath})

		// nothing scripted: every bin comes back empty
		trimmer := &routingTrimmer{assignments: map[string][]seqio.Record{}}
		workspace := stage.New(filepath.Join(dir, "work"), filepath.Join(dir, "final"),
			required, optional)
		p := New(Services{Trimmer: trimmer, Locator: noHitLocator{}, Clusterer: noopClusterer{}},
			workspace, quietLogger(), Options{})

		So(p.Run([]*SampleInput{in}), ShouldEqual, demux.ErrNoReadsAssigned)
	})
}

func TestExitCode(t *testing.T) {
	Convey("Exit codes distinguish missing inputs from missing tool outputs", t, func() {
		So(ExitCode(nil), ShouldEqual, ExitSuccess)
		So(ExitCode(ErrMissingInput), ShouldEqual, ExitMissingInput)
		So(ExitCode(errors.New("anything else")), ShouldEqual, ExitMissingInput)
		So(ExitCode(cutadapt.ErrExpectedOutput), ShouldEqual, ExitMissingOutput)
		So(ExitCode(vsearch.ErrExpectedOutput), ShouldEqual, ExitMissingOutput)
		So(ExitCode(demux.ErrMissingRoundOneOutput), ShouldEqual, ExitMissingOutput)
	})
}
