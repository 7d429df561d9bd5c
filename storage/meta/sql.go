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
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"
)

type SQLDatabase struct {
	client *sql.DB
	gormDB *gorm.DB
}

func openSQL(cfg config.DatabaseConfig) (*SQLDatabase, error) {
	var (
		path      = cfg.FeatureStore
		database  = new(SQLDatabase)
		dialector gorm.Dialector
		err       error
	)
	switch {
	case strings.HasPrefix(path, storage.MySQLPrefix):
		name := path[len(storage.MySQLPrefix):]
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"parseTime": "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		if database.client, err = otelsql.Open("mysql", name,
			otelsql.WithAttributes(semconv.DBSystemMySQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		dialector = mysql.New(mysql.Config{Conn: database.client})
	case strings.HasPrefix(path, storage.PostgresPrefix), strings.HasPrefix(path, storage.PostgreSQLPrefix):
		if database.client, err = otelsql.Open("postgres", path,
			otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		dialector = postgres.New(postgres.Config{Conn: database.client})
	case strings.HasPrefix(path, storage.SQLitePrefix):
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := path[len(storage.SQLitePrefix):]
		file, _, _ := strings.Cut(name, "?")
		if err = os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
			return nil, errors.Trace(err)
		}
		if database.client, err = otelsql.Open("sqlite", name,
			otelsql.WithAttributes(semconv.DBSystemSqlite),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		dialector = sqlite.Dialector{Conn: database.client}
	default:
		return nil, errors.NotSupportedf("database %v", path)
	}
	if cfg.MaxOpenConns > 0 {
		database.client.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		database.client.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if database.gormDB, err = gorm.Open(dialector, storage.NewGORMConfig(cfg.TablePrefix)); err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}

func (d *SQLDatabase) Init() error {
	return errors.Trace(d.gormDB.AutoMigrate(&Run{}, &Feature{}))
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) SaveRun(ctx context.Context, run *Run, features []Feature) error {
	return d.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.ID).Delete(&Feature{}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(run).Error; err != nil {
			return errors.Trace(err)
		}
		if len(features) == 0 {
			return nil
		}
		for i := range features {
			features[i].RunID = run.ID
		}
		return errors.Trace(tx.Create(&features).Error)
	})
}

func (d *SQLDatabase) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := d.gormDB.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFoundf("run %v", id)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &run, nil
}

func (d *SQLDatabase) LatestRun(ctx context.Context, dataset string) (*Run, error) {
	var run Run
	err := d.gormDB.WithContext(ctx).Where("dataset = ?", dataset).Order("create_time DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFoundf("run of dataset %v", dataset)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &run, nil
}

func (d *SQLDatabase) GetFeatures(ctx context.Context, runID string) ([]Feature, error) {
	var features []Feature
	err := d.gormDB.WithContext(ctx).Where("run_id = ?", runID).Order("column_id").Find(&features).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	return features, nil
}
