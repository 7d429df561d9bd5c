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

package logics

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/dataset"
	"github.com/gorse-io/kgtore/model"
	"github.com/gorse-io/kgtore/model/tree"
	"github.com/juju/errors"
)

// DecisionPathRecord is a feature tested on the decision path of a liked item. Feature is
// the feature id if the item has the feature and its negation otherwise.
type DecisionPathRecord struct {
	User    int32
	Item    int32
	Feature int32
}

// Sign returns +1 for a present feature and -1 for an absent one.
func (r DecisionPathRecord) Sign() float32 {
	if r.Feature < 0 {
		return -1
	}
	return 1
}

// FeatureID returns the unsigned feature id.
func (r DecisionPathRecord) FeatureID() int32 {
	if r.Feature < 0 {
		return -r.Feature
	}
	return r.Feature
}

type DecisionPather interface {
	DecisionPath(row *bitset.BitSet) []tree.Node
}

// ExtractDecisionPaths walks the decision path of every target that is a positive row of d,
// in target order, and emits a record per internal node.
func ExtractDecisionPaths(t DecisionPather, d *dataset.UserDataset, targets []int32) []DecisionPathRecord {
	var records []DecisionPathRecord
	for _, item := range targets {
		row, ok := d.PositiveRow(item)
		if !ok {
			continue
		}
		for _, node := range t.DecisionPath(d.Rows[row]) {
			if node.IsLeaf() {
				break
			}
			c := node.Feature()
			feature := d.Columns[c]
			if !d.Has(row, c) {
				feature = -feature
			}
			records = append(records, DecisionPathRecord{User: d.User, Item: item, Feature: feature})
		}
	}
	return records
}

// NewTreeParams converts the decision path config of a run into tree hyper-parameters.
func NewTreeParams(cfg config.DecisionPathConfig) model.Params {
	return model.Params{
		model.Criterion:       cfg.Criterion,
		model.PositiveWeight:  float32(cfg.NPR),
		model.MaxDepth:        cfg.MaxDepth,
		model.MinSamplesSplit: cfg.MinSamplesSplit,
		model.RandomState:     cfg.Seed,
	}
}

// UserDecisionPaths samples negatives for a user, fits a tree separating positives from
// negatives and extracts the decision paths of targets. It returns dataset.ErrNoPositives or
// dataset.ErrEmptyNegativePool for users that cannot be fitted.
func UserDecisionPaths(
	ctx context.Context,
	user int32,
	positives []int32,
	targets []int32,
	index *dataset.ItemFeatureIndex,
	cfg config.DecisionPathConfig,
) ([]DecisionPathRecord, error) {
	d, err := dataset.NewUserDataset(user, positives, index, cfg.NPR, cfg.Seed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	t := tree.NewDecisionTree(NewTreeParams(cfg))
	if err = t.Fit(ctx, d, tree.NewFitConfig()); err != nil {
		return nil, errors.Trace(err)
	}
	return ExtractDecisionPaths(t, d, targets), nil
}
