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

package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvVarCreds  = "DEMUX_AUTOMATION_CREDENTIALS_FILE"
	EnvVarSheet  = "DEMUX_AUTOMATION_SPREADSHEET_ID"
	EnvVarUser   = "DEMUX_AUTOMATION_SQL_USER"
	EnvVarPass   = "DEMUX_AUTOMATION_SQL_PASS"
	EnvVarHost   = "DEMUX_AUTOMATION_SQL_HOST"
	EnvVarPort   = "DEMUX_AUTOMATION_SQL_PORT"
	EnvVarDBName = "DEMUX_AUTOMATION_SQL_DB"

	EnvVarCutadapt = "DEMUX_AUTOMATION_CUTADAPT_EXE"
	EnvVarSeqkit   = "DEMUX_AUTOMATION_SEQKIT_EXE"
	EnvVarVsearch  = "DEMUX_AUTOMATION_VSEARCH_EXE"

	DefaultCutadaptExe = "cutadapt"
	DefaultSeqkitExe   = "seqkit"
	DefaultVsearchExe  = "vsearch"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrMissingEnvs = Error("missing required environment variables")

type Config struct {
	CredentialsPath string
	SheetID         string
	User            string
	Password        string
	Host            string
	Port            string
	DBName          string
}

// FromEnv returns a new Config with properies populated from environment
// variables DEMUX_AUTOMATION_*, where * is amongst: CREDENTIALS_FILE,
// SPREADSHEET_ID, SQL_USER, SQL_PASS, SQL_HOST, SQL_PORT, and SQL_DB.
//
// If these environment variables are defined in a file called .env (and not
// previously set in an environment variable), they will be automatically
// loaded.
//
// Optionally supply a directory to look for the .env file in.
func FromEnv(dir ...string) (*Config, error) {
	loadDotEnv(dir)

	cred := os.Getenv(EnvVarCreds)
	sheet := os.Getenv(EnvVarSheet)
	user := os.Getenv(EnvVarUser)
	pass := os.Getenv(EnvVarPass)
	host := os.Getenv(EnvVarHost)
	port := os.Getenv(EnvVarPort)
	dbname := os.Getenv(EnvVarDBName)

	if cred == "" || sheet == "" || user == "" || pass == "" || host == "" || port == "" || dbname == "" {
		return nil, ErrMissingEnvs
	}

	return &Config{
		CredentialsPath: cred,
		SheetID:         sheet,
		User:            user,
		Password:        pass,
		Host:            host,
		Port:            port,
		DBName:          dbname,
	}, nil
}

func loadDotEnv(dir []string) {
	var parentDir string
	if len(dir) == 1 {
		parentDir = dir[0] + string(os.PathSeparator)
	}

	godotenv.Load(parentDir + ".env")
}

// Tools holds the paths of the external tools we drive. Each falls back to
// the bare executable name, to be found on the user's PATH.
type Tools struct {
	CutadaptExe string
	SeqkitExe   string
	VsearchExe  string
}

// ToolsFromEnv returns a Tools with properties populated from environment
// variables DEMUX_AUTOMATION_*_EXE, defaulting to the plain tool names when
// unset. A .env file is loaded the same way FromEnv loads one.
//
// Unlike FromEnv, nothing is required here: a missing tool only matters when
// a command that needs it actually runs.
func ToolsFromEnv(dir ...string) *Tools {
	loadDotEnv(dir)

	return &Tools{
		CutadaptExe: getEnvDefault(EnvVarCutadapt, DefaultCutadaptExe),
		SeqkitExe:   getEnvDefault(EnvVarSeqkit, DefaultSeqkitExe),
		VsearchExe:  getEnvDefault(EnvVarVsearch, DefaultVsearchExe),
	}
}

func getEnvDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}

	return fallback
}
