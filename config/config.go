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
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/kgtore/common/parallel"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of kgtore.
type Config struct {
	Dataset      DatasetConfig      `mapstructure:"dataset"`
	DecisionPath DecisionPathConfig `mapstructure:"decision_path"`
	Output       OutputConfig       `mapstructure:"output"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"database"`
}

// DatasetConfig locates the input files of a dataset. Relative paths are resolved against DataDir.
type DatasetConfig struct {
	Name            string `mapstructure:"name" validate:"required"`
	DataDir         string `mapstructure:"data_dir"`
	KGFile          string `mapstructure:"kg_file" validate:"required"`
	ItemMappingFile string `mapstructure:"item_mapping_file"`
	InteractionFile string `mapstructure:"interaction_file" validate:"required"`
	TargetFile      string `mapstructure:"target_file"`
}

// Path resolves a dataset file. It returns an empty string if file is empty.
func (c *DatasetConfig) Path(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.DataDir, file)
}

type DecisionPathConfig struct {
	NPR             int    `mapstructure:"npr" validate:"gt=0"`
	Criterion       string `mapstructure:"criterion" validate:"oneof=entropy gini"`
	Seed            int64  `mapstructure:"seed"`
	Jobs            int    `mapstructure:"jobs" validate:"gte=0"`
	MaxDepth        int    `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int    `mapstructure:"min_samples_split" validate:"gte=2"`
	FailFast        bool   `mapstructure:"fail_fast"`
}

// NumJobs returns the number of workers. Zero means all but two cores.
func (c *DecisionPathConfig) NumJobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return parallel.DefaultJobs()
}

type OutputConfig struct {
	Device string `mapstructure:"device" validate:"required"`
}

type StorageConfig struct {
	Type      string          `mapstructure:"type" validate:"oneof=posix s3 gcs azure"`
	Dir       string          `mapstructure:"dir"`
	S3        S3Config        `mapstructure:"s3"`
	GCS       GCSConfig       `mapstructure:"gcs"`
	AzureBlob AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

// DatabaseConfig locates the feature store. The feature mapping is not persisted if
// FeatureStore is empty.
type DatabaseConfig struct {
	FeatureStore    string        `mapstructure:"feature_store"`
	TablePrefix     string        `mapstructure:"table_prefix"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			DataDir: "./data",
		},
		DecisionPath: DecisionPathConfig{
			NPR:             10,
			Criterion:       "entropy",
			Seed:            42,
			MinSamplesSplit: 2,
		},
		Output: OutputConfig{
			Device: "cpu",
		},
		Storage: StorageConfig{
			Type: "posix",
			Dir:  "./data",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    8,
			ConnMaxLifetime: time.Hour,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [dataset]
	v.SetDefault("dataset.data_dir", defaultConfig.Dataset.DataDir)
	// [decision_path]
	v.SetDefault("decision_path.npr", defaultConfig.DecisionPath.NPR)
	v.SetDefault("decision_path.criterion", defaultConfig.DecisionPath.Criterion)
	v.SetDefault("decision_path.seed", defaultConfig.DecisionPath.Seed)
	v.SetDefault("decision_path.jobs", defaultConfig.DecisionPath.Jobs)
	v.SetDefault("decision_path.max_depth", defaultConfig.DecisionPath.MaxDepth)
	v.SetDefault("decision_path.min_samples_split", defaultConfig.DecisionPath.MinSamplesSplit)
	v.SetDefault("decision_path.fail_fast", defaultConfig.DecisionPath.FailFast)
	// [output]
	v.SetDefault("output.device", defaultConfig.Output.Device)
	// [storage]
	v.SetDefault("storage.type", defaultConfig.Storage.Type)
	v.SetDefault("storage.dir", defaultConfig.Storage.Dir)
	// [database]
	v.SetDefault("database.max_open_conns", defaultConfig.Database.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", defaultConfig.Database.ConnMaxLifetime)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"dataset.name", "KGTORE_DATASET_NAME"},
	{"dataset.data_dir", "KGTORE_DATA_DIR"},
	{"decision_path.npr", "KGTORE_NPR"},
	{"decision_path.criterion", "KGTORE_CRITERION"},
	{"decision_path.seed", "KGTORE_SEED"},
	{"decision_path.jobs", "KGTORE_JOBS"},
	{"output.device", "KGTORE_DEVICE"},
	{"storage.type", "KGTORE_STORAGE_TYPE"},
	{"storage.dir", "KGTORE_STORAGE_DIR"},
	{"storage.s3.endpoint", "S3_ENDPOINT"},
	{"storage.s3.access_key_id", "S3_ACCESS_KEY_ID"},
	{"storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
	{"storage.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
	{"storage.azure.account_name", "AZURE_STORAGE_ACCOUNT"},
	{"storage.azure.account_key", "AZURE_STORAGE_KEY"},
	{"database.feature_store", "KGTORE_FEATURE_STORE"},
	{"database.table_prefix", "KGTORE_TABLE_PREFIX"},
}

// LoadConfig loads configuration from a TOML file. Defaults are used for missing keys and
// environment variables take precedence over the file. An empty path loads defaults and
// environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)

	// bind environment variables
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if strings.HasSuffix(path, ".template") {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
