// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package meta

import (
	"context"
	"strings"
	"time"

	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/storage"
	"github.com/juju/errors"
)

// Run is a decision path extraction.
type Run struct {
	ID         string `gorm:"primaryKey;size:36"`
	Dataset    string `gorm:"index;size:256"`
	NPR        int
	Criterion  string `gorm:"size:16"`
	Seed       int64
	Device     string `gorm:"size:64"`
	Path       string `gorm:"size:1024"`
	Users      int
	Skipped    int
	Failed     int
	Records    int
	Rows       int
	Columns    int
	CreateTime time.Time `gorm:"index"`
}

// Feature is a column of the edge feature matrix of a run.
type Feature struct {
	RunID     string `gorm:"primaryKey;size:36"`
	Column    int32  `gorm:"primaryKey;column:column_id;autoIncrement:false"`
	FeatureID int32
	Predicate string `gorm:"size:1024"`
	Object    string `gorm:"size:1024"`
	Freq      int
}

// Database stores runs and their feature mappings.
type Database interface {
	Close() error
	Init() error
	// SaveRun inserts a run with its features, replacing a run with the same ID.
	SaveRun(ctx context.Context, run *Run, features []Feature) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// LatestRun returns the most recent run of a dataset.
	LatestRun(ctx context.Context, dataset string) (*Run, error)
	// GetFeatures returns the features of a run ordered by column.
	GetFeatures(ctx context.Context, runID string) ([]Feature, error)
}

// Open a connection to a database.
func Open(cfg config.DatabaseConfig) (Database, error) {
	path := cfg.FeatureStore
	switch {
	case strings.HasPrefix(path, storage.MySQLPrefix),
		strings.HasPrefix(path, storage.PostgresPrefix),
		strings.HasPrefix(path, storage.PostgreSQLPrefix),
		strings.HasPrefix(path, storage.SQLitePrefix):
		return openSQL(cfg)
	default:
		return nil, errors.NotSupportedf("database %v", path)
	}
}
