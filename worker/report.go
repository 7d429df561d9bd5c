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

package worker

import (
	"github.com/gorse-io/kgtore/dataset"
	"github.com/gorse-io/kgtore/logics"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type Status int

const (
	StatusSucceeded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of the decision path extraction of a user.
type Result struct {
	User    int32
	Records []logics.DecisionPathRecord
	Status  Status
	Err     error
}

// NewResult classifies the outcome of a task. Users that cannot be fitted are skipped and
// any other error fails the user.
func NewResult(user int32, records []logics.DecisionPathRecord, err error) Result {
	result := Result{User: user, Records: records, Err: err}
	switch {
	case err == nil:
		result.Status = StatusSucceeded
	case errors.Is(err, dataset.ErrNoPositives), errors.Is(err, dataset.ErrEmptyNegativePool):
		result.Status = StatusSkipped
		result.Records = nil
	default:
		result.Status = StatusFailed
		result.Records = nil
	}
	return result
}

// Flatten concatenates records of succeeded users in result order.
func Flatten(results []Result) []logics.DecisionPathRecord {
	n := 0
	for _, result := range results {
		n += len(result.Records)
	}
	records := make([]logics.DecisionPathRecord, 0, n)
	for _, result := range results {
		if result.Status == StatusSucceeded {
			records = append(records, result.Records...)
		}
	}
	return records
}

// Report summarizes the users of a run.
type Report struct {
	RunID     string
	Succeeded []int32
	Skipped   []int32
	Failed    []int32
	// Errors holds the reason of every skipped or failed user.
	Errors  map[int32]error
	Records int
}

func NewReport(runID string, results []Result) *Report {
	report := &Report{RunID: runID, Errors: make(map[int32]error)}
	for _, result := range results {
		switch result.Status {
		case StatusSucceeded:
			report.Succeeded = append(report.Succeeded, result.User)
			report.Records += len(result.Records)
		case StatusSkipped:
			report.Skipped = append(report.Skipped, result.User)
			report.Errors[result.User] = result.Err
		case StatusFailed:
			report.Failed = append(report.Failed, result.User)
			report.Errors[result.User] = result.Err
		}
	}
	return report
}

func (r *Report) Users() int {
	return len(r.Succeeded) + len(r.Skipped) + len(r.Failed)
}

// Err returns an error summarizing failed users, or nil if no user failed.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	first := r.Failed[0]
	return errors.Errorf("%d of %d users failed (user %d: %v)", len(r.Failed), r.Users(), first, r.Errors[first])
}

// Log writes the summary of the run, skipped users at debug level and failed users at error level.
func (r *Report) Log(logger *zap.Logger) {
	for _, user := range r.Skipped {
		logger.Debug("skip user", zap.Int32("user_id", user), zap.Error(r.Errors[user]))
	}
	for _, user := range r.Failed {
		logger.Error("failed to extract decision paths", zap.Int32("user_id", user), zap.Error(r.Errors[user]))
	}
	logger.Info("complete extracting decision paths",
		zap.Int("n_users", r.Users()),
		zap.Int("n_succeeded", len(r.Succeeded)),
		zap.Int("n_skipped", len(r.Skipped)),
		zap.Int("n_failed", len(r.Failed)),
		zap.Int("n_records", r.Records))
}
