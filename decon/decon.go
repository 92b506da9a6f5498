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

// package decon removes primer sequences from demultiplexed reads, then
// verifies its own work: a locate pass over the trimmed output finds any
// residual primer anywhere in a read, and such reads are rejected rather
// than declared clean. Residual contamination is an expected, handled
// outcome here, never an abort.

package decon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/demux-automation/barcode"
	"github.com/wtsi-hgi/demux-automation/cutadapt"
	"github.com/wtsi-hgi/demux-automation/seqio"
	"github.com/wtsi-hgi/demux-automation/seqkit"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrEmptyRoundOne   = Error("round one trimming produced no trimmed records")
	ErrNoCompletePairs = Error("no complete primer pairs available for linked trimming")

	trimSubdir          = "trim"
	recategorizedSubdir = "recategorized"

	untrimmedBasename = "untrimmed"
	trimmedFasta      = "trimmed.fasta"
	patternsFasta     = "patterns.fasta"
	cleanFasta        = "clean.fasta"
	rejectedFasta     = "rejected.fasta"
	rejectedIDsFile   = "rejected_ids.txt"
	hitsFile          = "hits.tsv"
	recategorizedFa   = "recategorized.fasta"
	nonredundantFa    = "clean_nonredundant.fasta"
	reportFile        = "cutadapt.json"

	forwardSuffix = "_fwd"
	reverseSuffix = "_rev"

	hitsHeader = "seqID\tpatternName\tpattern\tstrand\tstart\tend\n"

	dirPerm  = 0755
	filePerm = 0600
)

// TrimmingService runs pattern-trimming commands. cutadapt.Client implements
// this.
type TrimmingService interface {
	Run(cmd *cutadapt.Command) error
}

// LocateService finds where patterns occur anywhere within sequences.
// seqkit.Client implements this.
type LocateService interface {
	Locate(patternFile, input string) ([]seqkit.Hit, error)
}

// ClusterService collapses near-duplicate sequences into a representative
// set. vsearch.Client implements this.
type ClusterService interface {
	Cluster(input string, identity float64, centroids string) error
}

// Options selects the optional decontamination stages.
type Options struct {
	// Salvage runs a second trimming pass over round one's untrimmed
	// records, with each primer as an individual single-ended pattern.
	Salvage bool

	// Cluster collapses the clean set into a non-redundant one.
	Cluster bool

	// ClusterIdentity is the similarity threshold for Cluster; 0 means the
	// clustering engine's default.
	ClusterIdentity float64

	// ErrorRate is passed through to the trimming engine.
	ErrorRate float64

	// ExtraPatterns are additional sequences the failsafe verifies against,
	// beyond the primer pairs themselves, eg. the demultiplexing barcodes.
	ExtraPatterns []barcode.Set
}

// Result describes where a decontamination run put its outputs. Paths for
// stages that did not run are empty.
type Result struct {
	CleanPath         string
	RejectedPath      string
	RejectedIDsPath   string
	HitsPath          string
	RecategorizedPath string
	NonredundantPath  string

	CleanCount         int
	RejectedCount      int
	RecategorizedCount int

	// State is the final state of the clean collection.
	State State
}

// RequiredOutputs returns the file names every successful run produces in
// its output directory.
func RequiredOutputs() []string {
	return []string{cleanFasta, rejectedFasta, rejectedIDsFile, hitsFile}
}

// OptionalOutputs returns the file names only produced when the salvage or
// clustering stages ran.
func OptionalOutputs() []string {
	return []string{recategorizedFa, nonredundantFa}
}

// Decontaminator runs linked-primer trimming, failsafe verification and the
// optional salvage and clustering stages for one read bin.
type Decontaminator struct {
	trimmer   TrimmingService
	locator   LocateService
	clusterer ClusterService
	pairs     []barcode.PrimerPair
	logger    log15.Logger
	opts      Options
}

// New returns a Decontaminator that will trim the given primer pairs using
// the trimming service, verify the result with the locate service, and
// cluster with the cluster service when Options ask for it.
func New(trimmer TrimmingService, locator LocateService, clusterer ClusterService,
	pairs []barcode.PrimerPair, logger log15.Logger, opts Options) *Decontaminator {
	return &Decontaminator{
		trimmer:   trimmer,
		locator:   locator,
		clusterer: clusterer,
		pairs:     pairs,
		logger:    logger,
		opts:      opts,
	}
}

// Run decontaminates the reads at readsPath into outputDir and reports what
// it produced. Incomplete primer pairs are excluded from linked trimming
// with one warning each; zero trimmed records halts the run for this bin
// with ErrEmptyRoundOne.
func (d *Decontaminator) Run(readsPath, outputDir string) (*Result, error) {
	ext, err := outputExtension(readsPath)
	if err != nil {
		return nil, err
	}

	complete := d.usablePairs()
	if len(complete) == 0 {
		return nil, ErrNoCompletePairs
	}

	state, err := Advance(StateParsed, StateRoundOneTrimmed)
	if err != nil {
		return nil, err
	}

	trimmed, err := d.roundOne(complete, readsPath, outputDir, ext)
	if err != nil {
		return nil, err
	}

	result, state, err := d.failsafe(state, trimmed, outputDir)
	if err != nil {
		return nil, err
	}

	if d.opts.Salvage {
		if err := d.salvage(result, outputDir, ext); err != nil {
			return nil, err
		}
	}

	if d.opts.Cluster {
		state, err = d.cluster(state, result, outputDir)
		if err != nil {
			return nil, err
		}
	}

	result.State = state

	return result, nil
}

// usablePairs returns the pairs with both ends present, logging one warning
// per excluded pair.
func (d *Decontaminator) usablePairs() []barcode.PrimerPair {
	var complete []barcode.PrimerPair

	for _, pair := range d.pairs {
		if !pair.Complete() {
			d.logger.Warn("incomplete primer pair excluded from linked trimming",
				"pair", pair.ID)

			continue
		}

		complete = append(complete, pair)
	}

	return complete
}

// roundOne trims every complete pair as one linked pattern in a single pass,
// routing unmatched reads to the untrimmed file, then gathers the per-pair
// outputs into one trimmed collection. Which pair wins when a read could
// match several is the trimming engine's policy.
func (d *Decontaminator) roundOne(complete []barcode.PrimerPair,
	readsPath, outputDir, ext string) ([]seqio.Record, error) {
	trimDir := filepath.Join(outputDir, trimSubdir)
	if err := os.MkdirAll(trimDir, dirPerm); err != nil {
		return nil, err
	}

	cmd := &cutadapt.Command{
		LinkedPairs:     linkedPatterns(complete),
		ErrorRate:       d.opts.ErrorRate,
		Revcomp:         true,
		UntrimmedOutput: filepath.Join(outputDir, untrimmedBasename+ext),
		JSONReport:      filepath.Join(outputDir, reportFile),
		Input:           readsPath,
		Output:          filepath.Join(trimDir, cutadapt.NameTemplate+ext),
	}

	if err := d.trimmer.Run(cmd); err != nil {
		return nil, err
	}

	d.logReport(cmd.JSONReport)

	return d.gatherTrimmed(complete, trimDir, outputDir, ext)
}

func linkedPatterns(complete []barcode.PrimerPair) []cutadapt.Linked {
	linked := make([]cutadapt.Linked, len(complete))

	for i, pair := range complete {
		linked[i] = cutadapt.Linked{
			Name:    pair.ID,
			Forward: pair.Forward.Sequence,
			Reverse: pair.Reverse.Sequence,
		}
	}

	return linked
}

// logReport logs the trimming engine's run statistics. The contents are
// opaque to us.
func (d *Decontaminator) logReport(path string) {
	report, err := os.ReadFile(path)
	if err != nil {
		return
	}

	d.logger.Debug("trimming statistics", "path", path, "bytes", len(report))
}

// gatherTrimmed reads the per-pair trim outputs into one collection and
// persists it for the failsafe. Zero records total is ErrEmptyRoundOne,
// logged as a warning since it is fatal for this bin only.
func (d *Decontaminator) gatherTrimmed(complete []barcode.PrimerPair,
	trimDir, outputDir, ext string) ([]seqio.Record, error) {
	var trimmed []seqio.Record

	for _, pair := range complete {
		records, err := seqio.ReadAll(filepath.Join(trimDir, pair.ID+ext))
		if err != nil {
			return nil, err
		}

		trimmed = append(trimmed, records...)
	}

	if len(trimmed) == 0 {
		d.logger.Warn("no reads matched any primer pair; halting for this bin",
			"input", trimDir)

		return nil, ErrEmptyRoundOne
	}

	if err := seqio.WriteFasta(filepath.Join(outputDir, trimmedFasta), trimmed); err != nil {
		return nil, err
	}

	return trimmed, nil
}

// failsafe locates every configured primer sequence anywhere in the trimmed
// records and partitions them into clean and rejected, persisting both along
// with the rejected id list and the hit table.
func (d *Decontaminator) failsafe(state State, trimmed []seqio.Record,
	outputDir string) (*Result, State, error) {
	patternsPath := filepath.Join(outputDir, patternsFasta)
	if err := d.writePatterns(patternsPath); err != nil {
		return nil, state, err
	}

	hits, err := d.locator.Locate(patternsPath, filepath.Join(outputDir, trimmedFasta))
	if err != nil {
		return nil, state, err
	}

	state, err = Advance(state, StateVerified)
	if err != nil {
		return nil, state, err
	}

	clean, rejected := Partition(trimmed, hits)

	d.logger.Info("failsafe verification complete",
		"clean", len(clean), "rejected", len(rejected), "hits", len(hits))

	result, err := d.persistVerdicts(clean, rejected, hits, outputDir)
	if err != nil {
		return nil, state, err
	}

	if _, err := Advance(state, StateRejected); err != nil {
		return nil, state, err
	}

	state, err = Advance(state, StateClean)

	return result, state, err
}

// writePatterns writes the union of every pair sequence (both ends, complete
// or not) plus any extra patterns as the failsafe's pattern file.
func (d *Decontaminator) writePatterns(path string) error {
	sets := append(barcode.AllSequences(d.pairs), d.opts.ExtraPatterns...)

	records := make([]seqio.Record, len(sets))
	for i, set := range sets {
		records[i] = seqio.Record{Header: set.Label, Seq: set.Sequence}
	}

	return seqio.WriteFasta(path, records)
}

// Partition splits records into those with no location hits (clean) and
// those with at least one (rejected). Every record lands in exactly one of
// the two.
func Partition(records []seqio.Record, hits []seqkit.Hit) (clean, rejected []seqio.Record) {
	hitIDs := make(map[string]bool, len(hits))
	for _, hit := range hits {
		hitIDs[hit.SeqID] = true
	}

	for _, record := range records {
		if hitIDs[record.ID()] {
			rejected = append(rejected, record)
		} else {
			clean = append(clean, record)
		}
	}

	return clean, rejected
}

func (d *Decontaminator) persistVerdicts(clean, rejected []seqio.Record,
	hits []seqkit.Hit, outputDir string) (*Result, error) {
	result := &Result{
		CleanPath:       filepath.Join(outputDir, cleanFasta),
		RejectedPath:    filepath.Join(outputDir, rejectedFasta),
		RejectedIDsPath: filepath.Join(outputDir, rejectedIDsFile),
		HitsPath:        filepath.Join(outputDir, hitsFile),
		CleanCount:      len(clean),
		RejectedCount:   len(rejected),
	}

	if err := seqio.WriteFasta(result.CleanPath, clean); err != nil {
		return nil, err
	}

	if err := seqio.WriteFasta(result.RejectedPath, rejected); err != nil {
		return nil, err
	}

	if err := writeRejectedIDs(result.RejectedIDsPath, rejected); err != nil {
		return nil, err
	}

	return result, writeHits(result.HitsPath, hits)
}

func writeRejectedIDs(path string, rejected []seqio.Record) error {
	var sb strings.Builder

	for _, record := range rejected {
		sb.WriteString(record.ID())
		sb.WriteString("\n")
	}

	return os.WriteFile(path, []byte(sb.String()), filePerm)
}

func writeHits(path string, hits []seqkit.Hit) error {
	var sb strings.Builder

	sb.WriteString(hitsHeader)

	for _, hit := range hits {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\t%d\t%d\n",
			hit.SeqID, hit.PatternName, hit.Pattern, hit.Strand, hit.Start, hit.End)
	}

	return os.WriteFile(path, []byte(sb.String()), filePerm)
}

// salvage re-trims round one's untrimmed records with every individual
// primer as a single-ended anchored pattern, dropping anything still
// unmatched. The output is kept apart from the clean set, since a read
// matching a lone primer has a different primer relationship than one that
// matched a full pair.
func (d *Decontaminator) salvage(result *Result, outputDir, ext string) error {
	recatDir := filepath.Join(outputDir, recategorizedSubdir)
	if err := os.MkdirAll(recatDir, dirPerm); err != nil {
		return err
	}

	five, three := d.singleEndedPatterns()

	cmd := &cutadapt.Command{
		FivePrime:        five,
		ThreePrime:       three,
		ErrorRate:        d.opts.ErrorRate,
		DiscardUntrimmed: true,
		Input:            filepath.Join(outputDir, untrimmedBasename+ext),
		Output:           filepath.Join(recatDir, cutadapt.NameTemplate+ext),
	}

	if err := d.trimmer.Run(cmd); err != nil {
		return err
	}

	if _, err := Advance(StateRoundOneTrimmed, StateRecategorized); err != nil {
		return err
	}

	return d.gatherRecategorized(result, cmd, recatDir, outputDir)
}

// singleEndedPatterns returns every pair end as its own anchored pattern:
// forward primers at the 5' end as-is, reverse primers at the 3' end
// reverse-complemented, since that is how they appear in a read.
func (d *Decontaminator) singleEndedPatterns() (five, three []cutadapt.Adapter) {
	for _, pair := range d.pairs {
		if pair.Forward != nil {
			five = append(five, cutadapt.Adapter{
				Name:     pair.ID + forwardSuffix,
				Sequence: pair.Forward.Sequence,
				Anchored: true,
			})
		}

		if pair.Reverse != nil {
			three = append(three, cutadapt.Adapter{
				Name:     pair.ID + reverseSuffix,
				Sequence: barcode.ReverseComplement(pair.Reverse.Sequence),
				Anchored: true,
			})
		}
	}

	return five, three
}

func (d *Decontaminator) gatherRecategorized(result *Result, cmd *cutadapt.Command,
	recatDir, outputDir string) error {
	var recategorized []seqio.Record

	for _, path := range cmd.ExpectedOutputs() {
		records, err := seqio.ReadAll(path)
		if err != nil {
			return err
		}

		recategorized = append(recategorized, records...)
	}

	result.RecategorizedPath = filepath.Join(outputDir, recategorizedFa)
	result.RecategorizedCount = len(recategorized)

	d.logger.Info("salvage round complete", "recategorized", len(recategorized))

	return seqio.WriteFasta(result.RecategorizedPath, recategorized)
}

// cluster collapses the clean set into a non-redundant one. An empty clean
// set is skipped with a warning, since there is nothing to collapse.
func (d *Decontaminator) cluster(state State, result *Result, outputDir string) (State, error) {
	if result.CleanCount == 0 {
		d.logger.Warn("clean set is empty; skipping clustering")

		return state, nil
	}

	centroids := filepath.Join(outputDir, nonredundantFa)

	err := d.clusterer.Cluster(result.CleanPath, d.opts.ClusterIdentity, centroids)
	if err != nil {
		return state, err
	}

	result.NonredundantPath = centroids

	return Advance(state, StateClustered)
}

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
