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
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
)

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(validateStorage, StorageConfig{})
}

// validateStorage requires a bucket or container for remote stores.
func validateStorage(sl validator.StructLevel) {
	storage := sl.Current().Interface().(StorageConfig)
	switch storage.Type {
	case "s3":
		if storage.S3.Bucket == "" {
			sl.ReportError(storage.S3.Bucket, "S3.Bucket", "bucket", "required", "")
		}
		if storage.S3.Endpoint == "" {
			sl.ReportError(storage.S3.Endpoint, "S3.Endpoint", "endpoint", "required", "")
		}
	case "gcs":
		if storage.GCS.Bucket == "" {
			sl.ReportError(storage.GCS.Bucket, "GCS.Bucket", "bucket", "required", "")
		}
	case "azure":
		if storage.AzureBlob.Container == "" {
			sl.ReportError(storage.AzureBlob.Container, "AzureBlob.Container", "container", "required", "")
		}
	}
}

func (config *Config) Validate() error {
	if err := validate.Struct(config); err != nil {
		return errors.Annotate(err, "invalid config")
	}
	return nil
}
