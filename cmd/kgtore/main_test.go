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


package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/storage/meta"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFeatures(t *testing.T) {
	var buf bytes.Buffer
	err := renderFeatures(&buf, []meta.Feature{
		{Column: 0, FeatureID: 3, Predicate: "genre", Object: "drama", Freq: 15},
		{Column: 1, FeatureID: 1, Predicate: "year", Object: "1999", Freq: 4},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, buf.String(), "drama")
	assert.Contains(t, buf.String(), "1999")
	for _, line := range lines {
		if strings.Contains(line, "drama") {
			assert.Contains(t, line, "genre")
			assert.Contains(t, line, "15")
		}
	}

	buf.Reset()
	require.NoError(t, renderFeatures(&buf, nil))
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	database, err := meta.Open(config.DatabaseConfig{
		FeatureStore: "sqlite://" + filepath.Join(t.TempDir(), "features.db"),
	})
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, database.Init())
	require.NoError(t, database.SaveRun(ctx, &meta.Run{
		ID:         "3b1d",
		Dataset:    "movielens",
		NPR:        10,
		Criterion:  "gini",
		Seed:       42,
		Path:       "movielens/kgtore/decision_path10_gini.tsv",
		Users:      5,
		Skipped:    1,
		Records:    12,
		Rows:       9,
		Columns:    1,
		CreateTime: time.Now().UTC(),
	}, []meta.Feature{{RunID: "3b1d", Column: 0, FeatureID: 2, Predicate: "director", Object: "nolan", Freq: 7}}))

	var buf bytes.Buffer
	require.NoError(t, inspect(ctx, &buf, database, "movielens", ""))
	assert.Contains(t, buf.String(), "Run 3b1d of movielens (npr=10, criterion=gini, seed=42)")
	assert.Contains(t, buf.String(), "5 users (1 skipped, 0 failed), 12 records, 9 x 1 matrix")
	assert.Contains(t, buf.String(), "nolan")

	buf.Reset()
	require.NoError(t, inspect(ctx, &buf, database, "", "3b1d"))
	assert.Contains(t, buf.String(), "director")

	err = inspect(ctx, &buf, database, "", "missing")
	assert.True(t, errors.Is(err, errors.NotFound))
	err = inspect(ctx, &buf, database, "netflix", "")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	var kg, train strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&kg, "m%d\tgenre\tg%d\nm%d\tyear\t%d\n", i, i%2, i, 2000+i%3)
	}
	for _, item := range []string{"m0", "m2", "m4"} {
		fmt.Fprintf(&train, "u1\t%s\n", item)
	}
	for _, item := range []string{"m1", "m3"} {
		fmt.Fprintf(&train, "u2\t%s\n", item)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kg.tsv"), []byte(kg.String()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.tsv"), []byte(train.String()), 0644))
	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
[dataset]
name = "movielens"
data_dir = %q
kg_file = "kg.tsv"
interaction_file = "train.tsv"

[decision_path]
npr = 2
jobs = 2

[storage]
type = "posix"
dir = %q

[database]
feature_store = %q
`, dir, filepath.Join(dir, "blob"), "sqlite://"+filepath.Join(dir, "features.db"))), 0644))

	// run
	rootCommand.SetArgs([]string{"run", "--config", configPath})
	require.NoError(t, rootCommand.Execute())
	_, err := os.Stat(filepath.Join(dir, "blob", "movielens", "kgtore", "decision_path2_entropy.tsv"))
	assert.NoError(t, err)

	// inspect the latest run
	var buf bytes.Buffer
	rootCommand.SetOut(&buf)
	defer rootCommand.SetOut(nil)
	rootCommand.SetArgs([]string{"inspect", "--config", configPath})
	require.NoError(t, rootCommand.Execute())
	assert.Contains(t, buf.String(), "of movielens (npr=2, criterion=entropy, seed=42)")
	assert.Contains(t, buf.String(), "2 users (0 skipped, 0 failed)")

	// unknown run
	rootCommand.SetArgs([]string{"inspect", "--config", configPath, "missing"})
	err = rootCommand.Execute()
	assert.True(t, errors.Is(err, errors.NotFound))

	// version
	buf.Reset()
	rootCommand.SetArgs([]string{"version"})
	require.NoError(t, rootCommand.Execute())
	assert.Contains(t, buf.String(), "Go version")
}
