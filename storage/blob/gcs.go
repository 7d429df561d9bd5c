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
	"context"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gorse-io/kgtore/config"
	"github.com/juju/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS stores decision path files in a Google Cloud Storage bucket under an optional prefix.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS connects to GCS. The endpoint in GCS_EMULATOR_ENDPOINT is used without
// authentication if set.
func NewGCS(cfg config.GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	if endpoint := os.Getenv("GCS_EMULATOR_ENDPOINT"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to connect bucket %v", cfg.Bucket)
	}
	return &GCS{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, name))
}

// Open an object for reading. A missing object is reported as errors.NotFound.
func (g *GCS) Open(name string) (io.ReadCloser, error) {
	r, err := g.object(name).NewReader(context.Background())
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errors.NotFoundf("blob %v", name)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return r, nil
}

// Create a new object. GCS commits the object when the writer is closed, so readers never
// observe a partial file.
func (g *GCS) Create(name string) (io.WriteCloser, chan struct{}, error) {
	wc := g.object(name).NewWriter(context.Background())
	wc.ContentType = "text/tab-separated-values"
	done := make(chan struct{})
	return &gcsWriter{Writer: wc, done: done}, done, nil
}

type gcsWriter struct {
	*storage.Writer
	done chan struct{}
}

func (w *gcsWriter) Close() error {
	defer close(w.done)
	return errors.Trace(w.Writer.Close())
}

// List returns the names of objects under the prefix, relative to it.
func (g *GCS) List() ([]string, error) {
	query := &storage.Query{}
	if g.prefix != "" {
		query.Prefix = g.prefix + "/"
	}
	var names []string
	it := g.client.Bucket(g.bucket).Objects(context.Background(), query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Trace(err)
		}
		names = append(names, strings.TrimPrefix(attrs.Name, query.Prefix))
	}
	return names, nil
}

func (g *GCS) Remove(name string) error {
	err := g.object(name).Delete(context.Background())
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errors.NotFoundf("blob %v", name)
	}
	return errors.Trace(err)
}
