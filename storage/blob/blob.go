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
	"io"

	"github.com/gorse-io/kgtore/config"
	"github.com/juju/errors"
)

// Store keeps named blobs such as decision path files.
type Store interface {
	// Open a blob for reading.
	Open(name string) (io.ReadCloser, error)
	// Create a blob for writing. The blob becomes visible after the writer is closed without
	// error, and the done channel is closed once the blob is persisted.
	Create(name string) (io.WriteCloser, chan struct{}, error)
	// List names of all blobs.
	List() ([]string, error)
	// Remove a blob.
	Remove(name string) error
}

// Open creates the store configured by cfg.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "posix":
		return NewPOSIX(cfg.Dir), nil
	case "s3":
		return NewS3(cfg.S3)
	case "gcs":
		return NewGCS(cfg.GCS)
	case "azure":
		return NewAzureBlob(cfg.AzureBlob, cfg.AzureBlob.Container, cfg.AzureBlob.Prefix)
	default:
		return nil, errors.NotSupportedf("storage %v", cfg.Type)
	}
}

// uploadWriter feeds an upload running in another goroutine. Close waits for the upload.
type uploadWriter struct {
	*io.PipeWriter
	done chan struct{}
	err  error
}

func newUploadWriter(upload func(r io.Reader) error) *uploadWriter {
	pr, pw := io.Pipe()
	w := &uploadWriter{PipeWriter: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		w.err = upload(pr)
		// unblock writers if the upload stopped early
		_ = pr.CloseWithError(w.err)
	}()
	return w
}

func (w *uploadWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.Trace(err)
	}
	<-w.done
	return errors.Trace(w.err)
}
