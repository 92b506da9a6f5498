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

// package stage manages per-sample working and final directories, making
// pipeline resubmission idempotent: samples whose final outputs already
// exist are skipped rather than redone.

package stage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/wtsi-hgi/demux-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrPartialOutputs       = Error("some final outputs for sample already exist, but not all")
	ErrOutputExistsDiffSize = Error("final output already exists with a different size")

	dirPerm = 0755
)

// Workspace lays out the working and final directory trees for samples: a
// working directory per sample (with a subdirectory per demultiplexed
// identifier) and a final directory per sample that the named outputs get
// moved to once decontamination completes.
type Workspace struct {
	workDir  string
	finalDir string
	required []string
	optional []string
}

// New returns a Workspace rooted at the given working and final directories.
// Every completed identifier of a sample must end up with the required
// output files; optional outputs are moved when present but their absence
// means nothing.
func New(workDir, finalDir string, required, optional []string) *Workspace {
	return &Workspace{
		workDir:  workDir,
		finalDir: finalDir,
		required: required,
		optional: optional,
	}
}

// SampleWorkDir returns the working directory for a sample, creating it if
// needed.
func (w *Workspace) SampleWorkDir(sample types.Sample) (string, error) {
	dir := filepath.Join(w.workDir, sample.Key())

	return dir, os.MkdirAll(dir, dirPerm)
}

// BinWorkDir returns the working directory for one demultiplexed identifier
// of a sample, creating it if needed.
func (w *Workspace) BinWorkDir(sample types.Sample, id types.Identifier) (string, error) {
	sampleDir, err := w.SampleWorkDir(sample)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(sampleDir, id.String())

	return dir, os.MkdirAll(dir, dirPerm)
}

// SampleFinalDir returns the directory a sample's outputs end up in.
func (w *Workspace) SampleFinalDir(sample types.Sample) string {
	return filepath.Join(w.finalDir, sample.Key())
}

// BinFinalDir returns the directory the outputs for one demultiplexed
// identifier of a sample end up in.
func (w *Workspace) BinFinalDir(sample types.Sample, id types.Identifier) string {
	return filepath.Join(w.SampleFinalDir(sample), id.String())
}

// Todo returns the unique samples that still need processing: those whose
// final outputs do not all exist yet. Duplicate (sample, run) entries are
// collapsed to the first occurrence. A sample with some but not all final
// outputs present is an error, since that means a previous run was
// interrupted mid-finalize and needs manual attention.
func (w *Workspace) Todo(samples []types.Sample) ([]types.Sample, error) {
	seen := make(map[string]bool, len(samples))
	todo := make([]types.Sample, 0, len(samples))

	for _, sample := range samples {
		if seen[sample.Key()] {
			continue
		}

		seen[sample.Key()] = true

		done, err := w.outputsPresent(sample)
		if err != nil {
			return nil, err
		}

		if done {
			continue
		}

		todo = append(todo, sample)
	}

	return todo, nil
}

// outputsPresent reports whether the sample has finalized outputs: its
// final directory holds one subdirectory per demultiplexed identifier, each
// of which must contain every expected output. No final directory or no
// subdirectories is false; any subdirectory with only some of the outputs
// is ErrPartialOutputs.
func (w *Workspace) outputsPresent(sample types.Sample) (bool, error) {
	entries, err := os.ReadDir(w.SampleFinalDir(sample))
	if err != nil {
		return false, nil //nolint:nilerr
	}

	found := false

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		binDir := filepath.Join(w.SampleFinalDir(sample), entry.Name())

		complete, err := w.binOutputsPresent(binDir)
		if err != nil {
			return true, err
		}

		found = found || complete
	}

	return found, nil
}

func (w *Workspace) binOutputsPresent(binDir string) (bool, error) {
	present := 0

	for _, name := range w.required {
		if fileExists(filepath.Join(binDir, name)) {
			present++
		}
	}

	switch present {
	case len(w.required):
		return true, nil
	case 0:
		return false, nil
	default:
		return false, ErrPartialOutputs
	}
}

// FinalizeBin moves the expected outputs from producedDir to the final
// directory for one identifier of a sample. An output that does not exist
// in producedDir is skipped, since optional stages may not have run.
func (w *Workspace) FinalizeBin(sample types.Sample, id types.Identifier,
	producedDir string) error {
	finalDir := w.BinFinalDir(sample, id)

	for _, name := range append(append([]string{}, w.required...), w.optional...) {
		src := filepath.Join(producedDir, name)
		if !fileExists(src) {
			continue
		}

		if err := moveFile(src, filepath.Join(finalDir, name)); err != nil {
			return err
		}
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

// moveFile moves a file from src to dst. If the destination file already
// exists and has the same size, nothing is done. If it exists with a
// different size, an error is returned. If it doesn't exist, a rename is
// attempted. If that fails, a copy is attempted. If that fails, an error is
// returned.
func moveFile(src, dst string) error {
	if err := checkExistingFile(src, dst); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	return copyAndRemove(src, dst)
}

// checkExistingFile checks if destination file exists and compares sizes
// with source.
func checkExistingFile(src, dst string) error {
	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if srcInfo.Size() == dstInfo.Size() {
		return nil
	}

	return ErrOutputExistsDiffSize
}

// copyAndRemove copies src to dst and removes src if successful.
func copyAndRemove(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer dstFile.Close()

	if _, err = io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	if err = dstFile.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
