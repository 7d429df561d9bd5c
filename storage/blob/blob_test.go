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

package blob

import (
	"bytes"
	"io"
	"testing"

	"github.com/gorse-io/kgtore/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestOpen(t *testing.T) {
	store, err := Open(config.StorageConfig{Type: "posix", Dir: t.TempDir()})
	assert.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)

	store, err = Open(config.StorageConfig{Type: "s3", S3: config.S3Config{Endpoint: "localhost:9000", Bucket: "kgtore"}})
	assert.NoError(t, err)
	assert.IsType(t, &S3{}, store)

	_, err = Open(config.StorageConfig{Type: "azure"})
	assert.Error(t, err)

	_, err = Open(config.StorageConfig{Type: "ftp"})
	assert.True(t, errors.Is(err, errors.NotSupported))
}

func TestUploadWriter(t *testing.T) {
	var buf bytes.Buffer
	w := newUploadWriter(func(r io.Reader) error {
		_, err := io.Copy(&buf, r)
		return err
	})
	_, err := w.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	<-w.done
	assert.Equal(t, "hello world", buf.String())

	// failed upload
	w = newUploadWriter(func(r io.Reader) error {
		return errors.New("connection refused")
	})
	_, _ = w.Write([]byte("hello world"))
	assert.ErrorContains(t, w.Close(), "connection refused")
}
