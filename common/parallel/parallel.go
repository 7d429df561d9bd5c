// Copyright 2020 gorse Project Authors
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

package parallel

import (
	"context"
	"runtime"
	"sync"

	"github.com/juju/errors"
)

const (
	chanSize = 1024
	// reservedCores are left to the coordinating goroutine.
	reservedCores = 2
)

// DefaultJobs returns the number of workers used when none is configured.
func DefaultJobs() int {
	return max(1, runtime.NumCPU()-reservedCores)
}

// Result is the outcome of a single job. Exactly one of Value and Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs worker on every element of a with nWorkers goroutines and blocks until all jobs
// finish. Results are returned in the order of a, regardless of completion order. A failing
// job never stops other jobs: its error (or recovered panic) is stored in its own Result. Jobs
// that have not started when ctx is cancelled report the context error.
func Map[T, R any](ctx context.Context, a []T, nWorkers int, worker func(jobId int, v T) (R, error)) []Result[R] {
	results := make([]Result[R], len(a))
	run := func(jobId int) {
		defer func() {
			if r := recover(); r != nil {
				results[jobId].Err = errors.Errorf("panic in job %d: %v", jobId, r)
			}
		}()
		if err := ctx.Err(); err != nil {
			results[jobId].Err = errors.Trace(err)
			return
		}
		value, err := worker(jobId, a[jobId])
		if err != nil {
			results[jobId].Err = err
			return
		}
		results[jobId].Value = value
	}

	if nWorkers <= 1 {
		for i := range a {
			run(i)
		}
		return results
	}

	c := make(chan int, chanSize)
	// producer
	go func() {
		defer close(c)
		for i := range a {
			c <- i
		}
	}()
	// consumer
	var wg sync.WaitGroup
	for j := 0; j < nWorkers; j++ {
		wg.Go(func() {
			for jobId := range c {
				run(jobId)
			}
		})
	}
	wg.Wait()
	return results
}

// Errors collects the errors of failed jobs keyed by job index.
func Errors[R any](results []Result[R]) map[int]error {
	errs := make(map[int]error)
	for i, result := range results {
		if result.Err != nil {
			errs[i] = result.Err
		}
	}
	return errs
}
