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

package tree

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/kgtore/base"
	"github.com/gorse-io/kgtore/common/log"
	"github.com/gorse-io/kgtore/dataset"
	"github.com/gorse-io/kgtore/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Leaf is the feature of leaf nodes.
const Leaf = -1

// Node is a node of a binary decision tree over presence columns.
type Node interface {
	IsLeaf() bool
	// Feature returns the column tested by the node, or Leaf.
	Feature() int
	// Children returns the subtrees taken when the column is absent and present.
	Children() (absent, present Node)
}

type Tree interface {
	Root() Node
}

type node struct {
	feature  int
	absent   *node
	present  *node
	samples  int
	weights  [2]float32 // weighted negative and positive counts
	impurity float32
}

func (n *node) IsLeaf() bool {
	return n.feature == Leaf
}

func (n *node) Feature() int {
	return n.feature
}

func (n *node) Children() (Node, Node) {
	if n.IsLeaf() {
		return nil, nil
	}
	return n.absent, n.present
}

type FitConfig struct {
	Verbose bool
}

func NewFitConfig() *FitConfig {
	return &FitConfig{}
}

func (config *FitConfig) SetVerbose(verbose bool) *FitConfig {
	config.Verbose = verbose
	return config
}

// DecisionTree is a CART classifier for presence columns. Every split tests one column:
// rows without the feature go to the absent child and rows with it go to the present child.
type DecisionTree struct {
	model.BaseModel
	criterion       Criterion
	positiveWeight  float32
	maxDepth        int
	minSamplesSplit int

	root      *node
	nodeCount int
	depth     int
}

func NewDecisionTree(params model.Params) *DecisionTree {
	t := new(DecisionTree)
	t.SetParams(params)
	return t
}

// SetParams sets hyper-parameters. An unknown criterion is reported by Fit.
func (t *DecisionTree) SetParams(params model.Params) {
	t.BaseModel.SetParams(params)
	t.criterion, _ = NewCriterion(t.Params.GetString(model.Criterion, "entropy"))
	t.positiveWeight = t.Params.GetFloat32(model.PositiveWeight, 1)
	t.maxDepth = t.Params.GetInt(model.MaxDepth, 0)
	t.minSamplesSplit = t.Params.GetInt(model.MinSamplesSplit, 2)
}

func (t *DecisionTree) Clear() {
	t.root = nil
	t.nodeCount = 0
	t.depth = 0
}

func (t *DecisionTree) Root() Node {
	if t.root == nil {
		return nil
	}
	return t.root
}

func (t *DecisionTree) NodeCount() int {
	return t.nodeCount
}

// Depth returns the number of edges on the longest root to leaf path.
func (t *DecisionTree) Depth() int {
	return t.depth
}

// splitter holds the column and label bitsets of a training set.
type splitter struct {
	*DecisionTree
	rng       base.RandomGenerator
	columns   []*bitset.BitSet
	positives *bitset.BitSet
}

// Fit grows the tree on a user dataset. A dataset with a single class yields a single leaf.
// Fitting the same dataset with the same RandomState always grows the same tree.
func (t *DecisionTree) Fit(ctx context.Context, d *dataset.UserDataset, config *FitConfig) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	if t.criterion == nil {
		return errors.NotValidf("criterion %v", t.Params.GetString(model.Criterion, "entropy"))
	}
	if t.positiveWeight <= 0 {
		return errors.NotValidf("positive weight %v", t.positiveWeight)
	}
	if d.Count() == 0 {
		return errors.NotValidf("empty dataset of user %v", d.User)
	}
	if config == nil {
		config = NewFitConfig()
	}
	t.Clear()

	// transpose rows into column bitsets
	n := uint(d.Count())
	s := &splitter{
		DecisionTree: t,
		rng:          base.NewRandomGenerator(t.GetRandomState()),
		columns:      make([]*bitset.BitSet, d.CountColumns()),
		positives:    bitset.New(n),
	}
	for c := range s.columns {
		s.columns[c] = bitset.New(n)
	}
	for i, row := range d.Rows {
		for c, ok := row.NextSet(0); ok; c, ok = row.NextSet(c + 1) {
			s.columns[c].Set(uint(i))
		}
		if d.Labels[i] {
			s.positives.Set(uint(i))
		}
	}

	mask := bitset.New(n)
	mask.FlipRange(0, n)
	t.root = s.grow(mask, 0)
	if config.Verbose {
		log.Logger().Debug("fit decision tree",
			zap.Int32("user_id", d.User),
			zap.String("criterion", t.criterion.Name()),
			zap.Int("n_samples", d.Count()),
			zap.Int("n_columns", d.CountColumns()),
			zap.Int("n_nodes", t.nodeCount),
			zap.Int("depth", t.depth))
	}
	return nil
}

func (s *splitter) weights(mask *bitset.BitSet) (float32, float32) {
	pos := mask.IntersectionCardinality(s.positives)
	neg := mask.Count() - pos
	return float32(neg), float32(pos) * s.positiveWeight
}

func (s *splitter) grow(mask *bitset.BitSet, depth int) *node {
	s.nodeCount++
	s.depth = max(s.depth, depth)
	n := &node{feature: Leaf, samples: int(mask.Count())}
	n.weights[0], n.weights[1] = s.weights(mask)
	n.impurity = s.criterion.Impurity(n.weights[0], n.weights[1])
	if n.impurity <= 0 ||
		n.samples < s.minSamplesSplit ||
		(s.maxDepth > 0 && depth >= s.maxDepth) {
		return n
	}

	total := n.weights[0] + n.weights[1]
	bestFeature, bestImprovement := Leaf, float32(0)
	var bestPresent *bitset.BitSet
	for _, c := range s.rng.Perm(len(s.columns)) {
		present := mask.Intersection(s.columns[c])
		count := int(present.Count())
		if count == 0 || count == n.samples {
			// constant in this node
			continue
		}
		absent := mask.Difference(s.columns[c])
		pNeg, pPos := s.weights(present)
		aNeg, aPos := s.weights(absent)
		child := ((pNeg+pPos)*s.criterion.Impurity(pNeg, pPos) +
			(aNeg+aPos)*s.criterion.Impurity(aNeg, aPos)) / total
		improvement := n.impurity - child
		if bestFeature == Leaf || improvement > bestImprovement {
			bestFeature, bestImprovement, bestPresent = c, improvement, present
		}
	}
	if bestFeature == Leaf {
		return n
	}
	n.feature = bestFeature
	n.absent = s.grow(mask.Difference(bestPresent), depth+1)
	n.present = s.grow(bestPresent, depth+1)
	return n
}

// DecisionPath returns the nodes visited by a presence row, from the root to a leaf.
func (t *DecisionTree) DecisionPath(row *bitset.BitSet) []Node {
	var path []Node
	for n := t.root; n != nil; {
		path = append(path, n)
		if n.IsLeaf() {
			break
		}
		if row.Test(uint(n.feature)) {
			n = n.present
		} else {
			n = n.absent
		}
	}
	return path
}

// Predict returns the weighted fraction of positives in the leaf reached by a row.
func (t *DecisionTree) Predict(row *bitset.BitSet) float32 {
	path := t.DecisionPath(row)
	if len(path) == 0 {
		return 0
	}
	leaf := path[len(path)-1].(*node)
	return leaf.weights[1] / (leaf.weights[0] + leaf.weights[1])
}
