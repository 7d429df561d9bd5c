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
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorse-io/kgtore/common/log"
	"github.com/gorse-io/kgtore/common/parallel"
	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/dataset"
	"github.com/gorse-io/kgtore/logics"
	"github.com/gorse-io/kgtore/storage/blob"
	"github.com/gorse-io/kgtore/storage/meta"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/gorse-io/kgtore/worker")

// Pipeline extracts decision paths of all users and aggregates them into edge features.
// Index and Interactions are read concurrently and must not be modified during Run.
type Pipeline struct {
	Config       *config.Config
	Index        *dataset.ItemFeatureIndex
	Interactions *dataset.Interactions
	Store        blob.Store
	// FeatureStore is optional. The feature mapping is persisted if set.
	FeatureStore meta.Database
	ShowProgress bool
	// LogInterval is the period of progress logs. Defaults to 10 seconds.
	LogInterval time.Duration
}

type Output struct {
	RunID   string
	Path    string
	Matrix  *logics.EdgeFeatureMatrix
	Mapping *dataset.Mapping[int32, dataset.Feature]
	Report  *Report
}

// ExtractDecisionPaths runs one task per user on a worker pool and returns results in the
// order of users. Users are never dropped: a task that fails or panics yields a failed result.
func (p *Pipeline) ExtractDecisionPaths(ctx context.Context, users []int32) []Result {
	cfg := p.Config.DecisionPath
	jobs := cfg.NumJobs()
	ctx, span := tracer.Start(ctx, "ExtractDecisionPaths", trace.WithAttributes(
		attribute.Int("n_users", len(users)),
		attribute.Int("n_jobs", jobs)))
	defer span.End()

	var bar *progressbar.ProgressBar
	if p.ShowProgress {
		bar = progressbar.NewOptions(len(users),
			progressbar.OptionSetDescription("decision paths"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
		defer func() {
			_ = bar.Finish()
		}()
	}

	// progress tracker
	var completed, skipped, failed atomic.Int64
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		interval := p.LogInterval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		previous := int64(0)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				current := completed.Load()
				if throughput := current - previous; throughput > 0 {
					log.Logger().Info("extracting decision paths",
						zap.Int64("n_complete_users", current),
						zap.Int("n_users", len(users)),
						zap.Int64("n_skipped", skipped.Load()),
						zap.Int64("n_failed", failed.Load()),
						zap.Int64("throughput", throughput))
				}
				previous = current
			}
		}
	}()

	values := parallel.Map(ctx, users, jobs, func(_ int, user int32) ([]logics.DecisionPathRecord, error) {
		defer func() {
			completed.Inc()
			if bar != nil {
				_ = bar.Add(1)
			}
		}()
		records, err := logics.UserDecisionPaths(ctx, user,
			p.Interactions.PositiveItems(user),
			p.Interactions.TargetItems(user),
			p.Index, cfg)
		switch NewResult(user, records, err).Status {
		case StatusSkipped:
			skipped.Inc()
		case StatusFailed:
			failed.Inc()
		}
		return records, err
	})

	if errs := parallel.Errors(values); len(errs) > 0 {
		span.SetAttributes(attribute.Int("n_errors", len(errs)))
	}
	results := make([]Result, len(users))
	for i, value := range values {
		results[i] = NewResult(users[i], value.Value, value.Err)
	}
	return results
}

// Run extracts decision paths of every user with interactions, saves them and builds the
// edge feature matrix. Failed users are reported and excluded unless FailFast is set.
func (p *Pipeline) Run(ctx context.Context) (*Output, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "Run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()
	logger := log.RunLogger(runID, p.Config.Dataset.Name)
	cfg := p.Config.DecisionPath

	users := p.Interactions.UserIds()
	logger.Info("start extracting decision paths",
		zap.Int("n_users", len(users)),
		zap.Int("n_items", p.Index.CountItems()),
		zap.Int("n_features", p.Index.CountFeatures()),
		zap.Int("npr", cfg.NPR),
		zap.String("criterion", cfg.Criterion),
		zap.Int64("seed", cfg.Seed),
		zap.Int("n_jobs", cfg.NumJobs()))

	// extract decision paths
	stepStart := time.Now()
	results := p.ExtractDecisionPaths(ctx, users)
	StepSecondsVec.WithLabelValues("extract_decision_paths").Set(time.Since(stepStart).Seconds())
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, errors.Trace(err)
	}
	report := NewReport(runID, results)
	report.Log(logger)
	UsersTotalVec.WithLabelValues(StatusSucceeded.String()).Set(float64(len(report.Succeeded)))
	UsersTotalVec.WithLabelValues(StatusSkipped.String()).Set(float64(len(report.Skipped)))
	UsersTotalVec.WithLabelValues(StatusFailed.String()).Set(float64(len(report.Failed)))
	if cfg.FailFast {
		if err := report.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, errors.Trace(err)
		}
	}

	// aggregate edge features
	stepStart = time.Now()
	records := Flatten(results)
	DecisionPathRecordsTotal.Set(float64(len(records)))
	path := logics.DecisionPathFile(p.Config.Dataset.Name, cfg.NPR, cfg.Criterion)
	_, aggregateSpan := tracer.Start(ctx, "BuildEdgeFeatures", trace.WithAttributes(
		attribute.Int("n_records", len(records)),
		attribute.String("path", path)))
	matrix, mapping, err := logics.BuildEdgeFeatures(p.Store, path, records, p.Interactions, p.Index.Dict(), p.Config.Output.Device)
	if err != nil {
		aggregateSpan.RecordError(err)
		aggregateSpan.SetStatus(codes.Error, err.Error())
	}
	aggregateSpan.End()
	if err != nil {
		return nil, errors.Trace(err)
	}
	StepSecondsVec.WithLabelValues("build_edge_features").Set(time.Since(stepStart).Seconds())
	EdgeFeatureColumnsTotal.Set(float64(matrix.NumColumns))
	logger.Info("complete building edge features",
		zap.String("path", path),
		zap.Int("n_rows", matrix.NumRows),
		zap.Int("n_columns", matrix.NumColumns),
		zap.Int("nnz", matrix.NNZ()),
		zap.String("device", matrix.Device))

	output := &Output{
		RunID:   runID,
		Path:    path,
		Matrix:  matrix,
		Mapping: mapping,
		Report:  report,
	}
	if p.FeatureStore != nil {
		if err = p.saveRun(ctx, output); err != nil {
			return nil, errors.Trace(err)
		}
	}
	TotalSeconds.Set(time.Since(startTime).Seconds())
	return output, nil
}

// saveRun persists the run and its column to feature mapping.
func (p *Pipeline) saveRun(ctx context.Context, output *Output) error {
	cfg := p.Config.DecisionPath
	run := &meta.Run{
		ID:         output.RunID,
		Dataset:    p.Config.Dataset.Name,
		NPR:        cfg.NPR,
		Criterion:  cfg.Criterion,
		Seed:       cfg.Seed,
		Device:     output.Matrix.Device,
		Path:       output.Path,
		Users:      output.Report.Users(),
		Skipped:    len(output.Report.Skipped),
		Failed:     len(output.Report.Failed),
		Records:    output.Report.Records,
		Rows:       output.Matrix.NumRows,
		Columns:    output.Matrix.NumColumns,
		CreateTime: time.Now().UTC(),
	}
	dict := p.Index.Dict()
	features := make([]meta.Feature, 0, output.Mapping.Len())
	output.Mapping.Range(func(column int32, feature dataset.Feature) bool {
		id, _ := dict.Lookup(feature)
		features = append(features, meta.Feature{
			Column:    column,
			FeatureID: id,
			Predicate: feature.Predicate,
			Object:    feature.Object,
			Freq:      dict.Freq(id),
		})
		return true
	})
	if err := p.FeatureStore.SaveRun(ctx, run, features); err != nil {
		return errors.Annotate(err, "failed to save feature mapping")
	}
	log.RunLogger(run.ID, run.Dataset).Info("save feature mapping",
		zap.Int("n_features", len(features)))
	return nil
}
