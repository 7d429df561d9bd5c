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
	"fmt"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/dataset"
	"github.com/gorse-io/kgtore/model/tree"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

// stubNode splits on a single column into two leaves.
type stubNode struct {
	feature int
}

func (n *stubNode) IsLeaf() bool {
	return n.feature == tree.Leaf
}

func (n *stubNode) Feature() int {
	return n.feature
}

func (n *stubNode) Children() (tree.Node, tree.Node) {
	return &stubNode{tree.Leaf}, &stubNode{tree.Leaf}
}

type stubTree struct {
	root *stubNode
}

func (t *stubTree) DecisionPath(*bitset.BitSet) []tree.Node {
	return []tree.Node{t.root, &stubNode{tree.Leaf}}
}

func newIndex(t *testing.T, features map[string][]string) *dataset.ItemFeatureIndex {
	items := dataset.NewMapping[string, int32]()
	var triples []dataset.Triple
	for i := 0; i < len(features); i++ {
		name := fmt.Sprintf("i%d", i)
		assert.NoError(t, items.Put(name, int32(i)))
		for _, feature := range features[name] {
			var predicate, object string
			_, _ = fmt.Sscanf(feature, "%s %s", &predicate, &object)
			triples = append(triples, dataset.Triple{Subject: name, Predicate: predicate, Object: object})
		}
	}
	index, err := dataset.BuildItemFeatureIndex(triples, items)
	assert.NoError(t, err)
	return index
}

func TestExtractDecisionPaths(t *testing.T) {
	// i0 lacks genre-drama and i1 has it
	index := newIndex(t, map[string][]string{
		"i0": {"director nolan"},
		"i1": {"director nolan", "genre drama"},
		"i2": {"genre comedy"},
		"i3": {"genre comedy", "genre drama"},
	})
	drama, ok := index.Dict().Lookup(dataset.Feature{Predicate: "genre", Object: "drama"})
	assert.True(t, ok)
	d, err := dataset.NewUserDataset(7, []int32{0, 1}, index, 1, 42)
	assert.NoError(t, err)
	column := lo.IndexOf(d.Columns, drama)
	assert.GreaterOrEqual(t, column, 0)

	records := ExtractDecisionPaths(&stubTree{&stubNode{column}}, d, []int32{1, 2, 0, 99})
	assert.Equal(t, []DecisionPathRecord{
		{User: 7, Item: 1, Feature: drama},
		{User: 7, Item: 0, Feature: -drama},
	}, records)
	assert.Equal(t, float32(1), records[0].Sign())
	assert.Equal(t, float32(-1), records[1].Sign())
	assert.Equal(t, drama, records[1].FeatureID())
}

func TestUserDecisionPaths(t *testing.T) {
	features := make(map[string][]string)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("i%d", i)
		features[name] = []string{fmt.Sprintf("genre g%d", i%3)}
		if i < 2 {
			features[name] = append(features[name], "tag liked")
		}
	}
	index := newIndex(t, features)
	liked, ok := index.Dict().Lookup(dataset.Feature{Predicate: "tag", Object: "liked"})
	assert.True(t, ok)

	cfg := config.GetDefaultConfig().DecisionPath
	cfg.NPR = 2
	records, err := UserDecisionPaths(context.Background(), 3, []int32{0, 1}, []int32{0, 1}, index, cfg)
	assert.NoError(t, err)
	assert.Equal(t, []DecisionPathRecord{
		{User: 3, Item: 0, Feature: liked},
		{User: 3, Item: 1, Feature: liked},
	}, records)

	// positives without features
	_, err = UserDecisionPaths(context.Background(), 3, []int32{42}, nil, index, cfg)
	assert.ErrorIs(t, err, dataset.ErrNoPositives)

	// invalid criterion
	cfg.Criterion = "mse"
	_, err = UserDecisionPaths(context.Background(), 3, []int32{0, 1}, nil, index, cfg)
	assert.Error(t, err)
}

func TestDecisionPathColumns(t *testing.T) {
	features := make(map[string][]string)
	for i := 0; i < 60; i++ {
		name := fmt.Sprintf("i%d", i)
		for _, m := range []int{2, 3, 5, 7} {
			features[name] = append(features[name], fmt.Sprintf("mod%d %d", m, i%m))
		}
	}
	index := newIndex(t, features)
	cfg := config.GetDefaultConfig().DecisionPath
	positives := []int32{0, 6, 12, 15, 35, 42}
	d, err := dataset.NewUserDataset(1, positives, index, cfg.NPR, cfg.Seed)
	assert.NoError(t, err)
	records, err := UserDecisionPaths(context.Background(), 1, positives, positives, index, cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, records)
	for _, r := range records {
		assert.NotZero(t, r.Feature)
		assert.Contains(t, d.Columns, r.FeatureID())
		assert.Contains(t, positives, r.Item)
		features, _ := index.Get(r.Item)
		assert.Equal(t, r.Feature > 0, lo.Contains(features, r.FeatureID()))
	}

	// same seed, same records
	again, err := UserDecisionPaths(context.Background(), 1, positives, positives, index, cfg)
	assert.NoError(t, err)
	assert.Equal(t, records, again)
}
