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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorse-io/kgtore/common/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Open a file for reading. A missing file is reported as errors.NotFound.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(p.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.NotFoundf("blob %v", name)
	}
	return file, errors.Trace(err)
}

// Create a new file for writing. Data goes to a temporary file in the same directory, which
// replaces the target on Close. A writer that failed to write removes the temporary file on
// Close, so readers never observe a partial file.
func (p *POSIX) Create(name string) (io.WriteCloser, chan struct{}, error) {
	fullPath := filepath.Join(p.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return nil, nil, errors.Trace(err)
	}
	file, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	done := make(chan struct{})
	return &atomicWriter{file: file, path: fullPath, done: done}, done, nil
}

type atomicWriter struct {
	file *os.File
	path string
	done chan struct{}
	err  error
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		w.err = err
	}
	return n, err
}

func (w *atomicWriter) Close() error {
	defer close(w.done)
	err := w.file.Close()
	if w.err != nil || err != nil {
		if removeErr := os.Remove(w.file.Name()); removeErr != nil {
			log.Logger().Error("failed to remove temp file", zap.String("file", w.file.Name()), zap.Error(removeErr))
		}
		if w.err != nil {
			return errors.Trace(w.err)
		}
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(w.file.Name(), w.path))
}

// List names of files, relative to the root directory. Temporary files are excluded.
func (p *POSIX) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		name, err := filepath.Rel(p.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(name))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return names, errors.Trace(err)
}

func (p *POSIX) Remove(name string) error {
	return os.Remove(filepath.Join(p.dir, name))
}
