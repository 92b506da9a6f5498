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

// package samples merges sample information from the sequencing warehouse
// with plate metadata from the manifest sheet, caching the merged results.

package samples

import (
	"sync"
	"time"

	"github.com/wtsi-hgi/demux-automation/manifest"
	"github.com/wtsi-hgi/demux-automation/types"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrInvalidSampleRun   = Error("both sample and run must be set")
	ErrNoSampleRun        = Error("no sample and run provided")
	ErrSampleRunsNotFound = Error("no samples found for given samples and runs")
)

type SeqDBClient interface {
	// SamplesForStudy returns all quality-checked samples of the given
	// study, with the paths of their raw reads files.
	SamplesForStudy(studyID string) ([]types.Sample, error)

	// Close closes the connection to the warehouse database.
	Close() error
}

type ManifestClient interface {
	// DemuxMetaData reads sheets "plates" and "samples" from the sheet with
	// the given id and returns each plate's layout along with each sample's
	// plate assignment.
	DemuxMetaData(sheetID string) (*manifest.MetaData, error)
}

type cache struct {
	samples    map[string][]Sample
	lastUpdate time.Time
	lifetime   time.Duration
	mu         sync.RWMutex
}

func newCache(lifetime time.Duration) *cache {
	return &cache{
		samples:  make(map[string][]Sample),
		lifetime: lifetime,
	}
}

func (c *cache) getData(studyID string) (bool, []Sample) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached := c.lastUpdate.Add(c.lifetime).After(time.Now())
	data := c.samples[studyID]

	return cached, data
}

func (c *cache) storeData(studyID string, data []Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples[studyID] = data
	c.lastUpdate = time.Now()
}

func (c *cache) lastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdate
}

// Client can connect to the sequencing warehouse and the manifest sheet to
// get sample information.
type Client struct {
	dc      SeqDBClient
	mc      ManifestClient
	sheetID string
	cache   *cache

	stopCh chan struct{}
	stopMu sync.RWMutex

	err   error
	errMu sync.RWMutex
}

// ClientOptions are options for creating a new Client.
type ClientOptions struct {
	// SheetID is the id of the google sheet to get metadata from.
	SheetID string

	// CacheLifetime is the maximum age of cached results.
	CacheLifetime time.Duration

	// Prefetch fetches ForStudy() results for the given studies every
	// CacheLifetime so that you never have to wait for a query and they're
	// as fresh as possible. Errors are not returned, but can be checked with
	// Err().
	Prefetch []string
}

// New returns a new Client that can connect to the warehouse and the
// manifest sheet with the given id to retrieve sample information.
func New(dc SeqDBClient, mc ManifestClient, opts ClientOptions) *Client {
	c := &Client{
		dc:      dc,
		mc:      mc,
		sheetID: opts.SheetID,
		cache:   newCache(opts.CacheLifetime),
	}

	if len(opts.Prefetch) > 0 && opts.CacheLifetime > 0 {
		c.asyncForStudies(opts.Prefetch)
		go c.prefetch(opts.CacheLifetime, opts.Prefetch)
	}

	return c
}

func (c *Client) asyncForStudies(studies []string) {
	for _, studyID := range studies {
		result, err := c.freshForStudyQuery(studyID)

		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()

		if err != nil {
			return
		}

		c.cache.storeData(studyID, result)
	}
}

func (c *Client) prefetch(sleepTime time.Duration, studies []string) {
	c.stopMu.Lock()
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.stopMu.Unlock()

	ticker := time.NewTicker(sleepTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.asyncForStudies(studies)
		case <-stopCh:
			return
		}
	}
}

// Err returns the last error that occurred during prefetching (ie. errors
// from calling ForStudy() in the background). Successful prefetches clear
// the error.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.err
}

// LastPrefetchSuccess returns the time of the last successful prefetch. If
// no prefetch has succeeded yet, the zero time is returned.
func (c *Client) LastPrefetchSuccess() time.Time {
	return c.cache.lastUpdated()
}

// Sample is a warehouse sample combined with the metadata of the plate it
// was prepared on.
type Sample struct {
	types.Sample
	Plate *manifest.PlateMetaData
}

// SampleRun lets you specify a sample id and run id, for filtering Samples.
type SampleRun struct {
	Sample string
	Run    string
}

// Samples is a slice of Sample, from which you can get a subset based on
// SampleRuns.
type Samples []Sample

// Filter returns a subset of the samples that match the given sample and
// run ids. Returns an error if not all SampleRuns are found in the samples,
// or no valid SampleRuns are provided.
func (s Samples) Filter(sampleRuns []SampleRun) (Samples, error) {
	srMap := make(map[string]bool, len(sampleRuns))

	for _, sr := range sampleRuns {
		if sr.Sample == "" || sr.Run == "" {
			return nil, ErrInvalidSampleRun
		}

		srMap[sr.Sample+"."+sr.Run] = true
	}

	if len(srMap) == 0 {
		return nil, ErrNoSampleRun
	}

	if len(srMap) > len(s) {
		return nil, ErrSampleRunsNotFound
	}

	result := make(Samples, 0, len(srMap))

	for _, sample := range s {
		key := sample.Key()
		if srMap[key] {
			result = append(result, sample)
			delete(srMap, key)
		}
	}

	if len(srMap) != 0 {
		return nil, ErrSampleRunsNotFound
	}

	return result, nil
}

// ForStudy returns all quality-checked samples of the given study that have
// a plate assignment in the manifest sheet. It caches database queries, so
// results can be up to CacheLifetime old.
//
// If you have prefetching enabled, this always returns immediately with the
// result of the last successful prefetch, which might have been longer than
// CacheLifetime ago, if the last actual prefetch failed (see Err()).
func (c *Client) ForStudy(studyID string) (Samples, error) {
	cached, result := c.cache.getData(studyID)

	c.stopMu.RLock()
	stopCh := c.stopCh
	c.stopMu.RUnlock()

	if !cached && stopCh == nil {
		var err error

		result, err = c.freshForStudyQuery(studyID)
		if err != nil {
			return nil, err
		}

		c.cache.storeData(studyID, result)
	}

	return result, nil
}

func (c *Client) freshForStudyQuery(studyID string) ([]Sample, error) {
	samples, err := c.dc.SamplesForStudy(studyID)
	if err != nil {
		return nil, err
	}

	metadata, err := c.mc.DemuxMetaData(c.sheetID)
	if err != nil {
		return nil, err
	}

	result := make([]Sample, 0, len(samples))

	for _, s := range samples {
		plate := metadata.PlateForSample(s)
		if plate == nil {
			continue
		}

		s.PlateID = plate.PlateID
		result = append(result, Sample{Sample: s, Plate: plate})
	}

	return result, nil
}

// Close closes database connections and stops prefetching.
func (c *Client) Close() error {
	err := c.dc.Close()

	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}

	return err
}
