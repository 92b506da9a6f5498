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

package samples

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/demux-automation/manifest"
	"github.com/wtsi-hgi/demux-automation/types"
)

const (
	studyID = "study1"
	errMock = Error("mock error")
)

type mockSeqDB struct {
	dsamples []types.Sample
	err      error
	mu       sync.RWMutex
}

func (m *mockSeqDB) SamplesForStudy(studyID string) ([]types.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.dsamples, m.err
}

func (m *mockSeqDB) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *mockSeqDB) Close() error {
	return nil
}

type mockManifest struct{ md *manifest.MetaData }

func (m *mockManifest) DemuxMetaData(sheetID string) (*manifest.MetaData, error) {
	return m.md, nil
}

func testMetaData() *manifest.MetaData {
	plate := &manifest.PlateMetaData{
		PlateID:              "plate1",
		FivePrimeBarcodePath: "/data/p1_5p.fasta",
		Rows:                 8,
		Columns:              12,
	}

	return &manifest.MetaData{
		Plates: map[string]*manifest.PlateMetaData{"plate1": plate},
		SamplePlates: map[string]string{
			"sample1.run1": "plate1",
			"sample2.run1": "plate1",
		},
	}
}

func TestSamplesMock(t *testing.T) {
	Convey("Given mock warehouse and manifest connections", t, func() {
		dsamples := []types.Sample{
			{SampleID: "sample1", RunID: "run1", StudyID: studyID, ReadsPath: "/seq/s1.fastq.gz"},
			{SampleID: "sample2", RunID: "run1", StudyID: studyID, ReadsPath: "/seq/s2.fastq.gz"},
			{SampleID: "sample3", RunID: "run2", StudyID: studyID, ReadsPath: "/seq/s3.fastq.gz"},
		}

		dclient := &mockSeqDB{dsamples: dsamples}
		mclient := &mockManifest{md: testMetaData()}

		Convey("Without prefetching, queries merge and are cached", func() {
			c := New(dclient, mclient, ClientOptions{
				SheetID:       "sheetID",
				CacheLifetime: time.Minute,
			})

			defer c.Close()

			merged, err := c.ForStudy(studyID)
			So(err, ShouldBeNil)

			Convey("samples without a plate assignment are dropped", func() {
				So(merged, ShouldHaveLength, 2)
				So(merged[0].SampleID, ShouldEqual, "sample1")
				So(merged[0].PlateID, ShouldEqual, "plate1")
				So(merged[0].Plate.FivePrimeBarcodePath, ShouldEqual, "/data/p1_5p.fasta")
				So(merged[1].SampleID, ShouldEqual, "sample2")
			})

			Convey("and later queries come from the cache", func() {
				dclient.setError(errMock)

				cached, err := c.ForStudy(studyID)
				So(err, ShouldBeNil)
				So(cached, ShouldResemble, merged)
			})
		})

		Convey("With prefetching, results are served from the background fetch", func() {
			c := New(dclient, mclient, ClientOptions{
				SheetID:       "sheetID",
				CacheLifetime: time.Minute,
				Prefetch:      []string{studyID},
			})

			defer c.Close()

			So(c.Err(), ShouldBeNil)
			So(c.LastPrefetchSuccess().IsZero(), ShouldBeFalse)

			merged, err := c.ForStudy(studyID)
			So(err, ShouldBeNil)
			So(merged, ShouldHaveLength, 2)
		})

		Convey("Query errors are returned", func() {
			dclient.setError(errMock)

			c := New(dclient, mclient, ClientOptions{SheetID: "sheetID"})

			defer c.Close()

			_, err := c.ForStudy(studyID)
			So(err, ShouldEqual, errMock)
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Given merged samples", t, func() {
		all := Samples{
			{Sample: types.Sample{SampleID: "sample1", RunID: "run1"}},
			{Sample: types.Sample{SampleID: "sample2", RunID: "run1"}},
			{Sample: types.Sample{SampleID: "sample2", RunID: "run2"}},
		}

		Convey("You can filter them for desired sample runs", func() {
			subset, err := all.Filter([]SampleRun{
				{Sample: "sample2", Run: "run2"},
				{Sample: "sample1", Run: "run1"},
			})
			So(err, ShouldBeNil)
			So(subset, ShouldHaveLength, 2)
			So(subset[0].Key(), ShouldEqual, "sample1.run1")
			So(subset[1].Key(), ShouldEqual, "sample2.run2")
		})

		Convey("Invalid or unknown sample runs are errors", func() {
			_, err := all.Filter([]SampleRun{{Sample: "sample1"}})
			So(err, ShouldEqual, ErrInvalidSampleRun)

			_, err = all.Filter(nil)
			So(err, ShouldEqual, ErrNoSampleRun)

			_, err = all.Filter([]SampleRun{{Sample: "sample9", Run: "run9"}})
			So(err, ShouldEqual, ErrSampleRunsNotFound)
		})
	})
}
