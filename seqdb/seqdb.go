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

// package seqdb queries the sequencing warehouse database for the runs and
// reads files belonging to a study.

package seqdb

import (
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/wtsi-hgi/demux-automation/config"
	"github.com/wtsi-hgi/demux-automation/types"
)

const (
	sqlDriverName   = "mysql"
	connMaxLifetime = time.Minute * 3
	maxOpenConns    = 10
	maxIdleConns    = 10
)

// SeqDB is a connection to the sequencing warehouse database.
type SeqDB struct {
	pool *sql.DB
}

// MySQLConfigFromConfig converts our Config to a mysql.Config usable with
// New.
func MySQLConfigFromConfig(c *config.Config) *mysql.Config {
	return &mysql.Config{
		User:                 c.User,
		Passwd:               c.Password,
		Net:                  "tcp",
		Addr:                 net.JoinHostPort(c.Host, c.Port),
		DBName:               c.DBName,
		AllowNativePasswords: true,
	}
}

// New returns a new SeqDB connection using mysql.Config that you can get
// from MySQLConfigFromConfig(config.FromEnv()).
func New(c *mysql.Config) (*SeqDB, error) {
	pool, err := sql.Open(sqlDriverName, c.FormatDSN())
	if err != nil {
		return nil, err
	}

	pool.SetConnMaxLifetime(connMaxLifetime)
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)

	return &SeqDB{pool: pool}, pool.Ping()
}

const getSamples = `
SELECT DISTINCT st.id_study_lims as StudyID, r.id_run as RunID,
sa.sanger_sample_id as SampleID, rf.reads_path as ReadsPath
FROM study st
JOIN sample sa on sa.id_study_tmp = st.id_study_tmp
JOIN seq_run r on r.id_sample_tmp = sa.id_sample_tmp
JOIN reads_file rf on rf.id_run_tmp = r.id_run_tmp
WHERE st.id_study_lims = ? and r.qc_complete = '1'
`

// SamplesForStudy returns all quality-checked samples of the given study,
// with the warehouse paths of their raw reads files.
func (s *SeqDB) SamplesForStudy(studyID string) ([]types.Sample, error) {
	rows, err := s.pool.Query(getSamples, studyID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var samples []types.Sample

	for rows.Next() {
		var sample types.Sample

		if err := rows.Scan(
			&sample.StudyID,
			&sample.RunID,
			&sample.SampleID,
			&sample.ReadsPath,
		); err != nil {
			return nil, err
		}

		samples = append(samples, sample)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Close closes the connection to the database.
func (s *SeqDB) Close() error {
	return s.pool.Close()
}
