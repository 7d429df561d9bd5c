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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorse-io/kgtore/common/parallel"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml.template")
	assert.NoError(t, err)
	text := strings.Replace(string(data), `target_file = ""`, `target_file = "test.tsv"`, -1)
	v := viper.New()
	v.SetConfigType("toml")
	err = v.ReadConfig(strings.NewReader(text))
	assert.NoError(t, err)
	var config Config
	err = v.Unmarshal(&config)
	assert.NoError(t, err)

	// [dataset]
	assert.Equal(t, "movielens", config.Dataset.Name)
	assert.Equal(t, "./data/movielens", config.Dataset.DataDir)
	assert.Equal(t, "kg.tsv", config.Dataset.KGFile)
	assert.Equal(t, "item_mapping.tsv", config.Dataset.ItemMappingFile)
	assert.Equal(t, "train.tsv", config.Dataset.InteractionFile)
	assert.Equal(t, "test.tsv", config.Dataset.TargetFile)
	// [decision_path]
	assert.Equal(t, 10, config.DecisionPath.NPR)
	assert.Equal(t, "entropy", config.DecisionPath.Criterion)
	assert.Equal(t, int64(42), config.DecisionPath.Seed)
	assert.Equal(t, 0, config.DecisionPath.Jobs)
	assert.Equal(t, 0, config.DecisionPath.MaxDepth)
	assert.Equal(t, 2, config.DecisionPath.MinSamplesSplit)
	assert.False(t, config.DecisionPath.FailFast)
	// [output]
	assert.Equal(t, "cpu", config.Output.Device)
	// [storage]
	assert.Equal(t, "posix", config.Storage.Type)
	assert.Equal(t, "./data", config.Storage.Dir)
	// [database]
	assert.Equal(t, "sqlite://./data/movielens/kgtore/features.db", config.Database.FeatureStore)
	assert.Equal(t, "kgtore_", config.Database.TablePrefix)
	assert.Equal(t, 8, config.Database.MaxOpenConns)
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, "movielens", config.Dataset.Name)
	assert.Equal(t, time.Hour, config.Database.ConnMaxLifetime)

	// invalid value
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte("[dataset]\nname = \"ml\"\nkg_file = \"kg.tsv\"\ninteraction_file = \"train.tsv\"\n[decision_path]\ncriterion = \"mse\"\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	// missing file
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	v := viper.New()
	setDefault(v)
	v.SetConfigType("toml")
	err := v.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = v.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

type environmentVariable struct {
	key   string
	value string
}

func TestBindEnv(t *testing.T) {
	variables := []environmentVariable{
		{"KGTORE_DATASET_NAME", "<dataset_name>"},
		{"KGTORE_NPR", "4"},
		{"KGTORE_CRITERION", "gini"},
		{"KGTORE_SEED", "7"},
		{"KGTORE_JOBS", "3"},
		{"KGTORE_DEVICE", "cuda:0"},
		{"KGTORE_STORAGE_DIR", "<storage_dir>"},
		{"KGTORE_FEATURE_STORE", "<feature_store>"},
	}
	for _, variable := range variables {
		t.Setenv(variable.key, variable.value)
	}

	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, "<dataset_name>", config.Dataset.Name)
	assert.Equal(t, 4, config.DecisionPath.NPR)
	assert.Equal(t, "gini", config.DecisionPath.Criterion)
	assert.Equal(t, int64(7), config.DecisionPath.Seed)
	assert.Equal(t, 3, config.DecisionPath.Jobs)
	assert.Equal(t, 3, config.DecisionPath.NumJobs())
	assert.Equal(t, "cuda:0", config.Output.Device)
	assert.Equal(t, "<storage_dir>", config.Storage.Dir)
	assert.Equal(t, "<feature_store>", config.Database.FeatureStore)

	// check default values
	assert.Equal(t, 2, config.DecisionPath.MinSamplesSplit)
}

func TestDatasetPath(t *testing.T) {
	cfg := DatasetConfig{DataDir: "data/ml-1m"}
	assert.Equal(t, "data/ml-1m/kg.tsv", cfg.Path("kg.tsv"))
	assert.Equal(t, "/tmp/kg.tsv", cfg.Path("/tmp/kg.tsv"))
	assert.Empty(t, cfg.Path(""))
}

func TestNumJobs(t *testing.T) {
	cfg := DecisionPathConfig{Jobs: 5}
	assert.Equal(t, 5, cfg.NumJobs())
	cfg.Jobs = 0
	assert.Equal(t, parallel.DefaultJobs(), cfg.NumJobs())
	assert.GreaterOrEqual(t, cfg.NumJobs(), 1)
}
