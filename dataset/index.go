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

package dataset

import (
	"slices"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

// ItemFeatureIndex maps private item ids to the sorted ids of their features. Items without
// triples are absent. The index is never modified after BuildItemFeatureIndex returns, so it
// can be shared by any number of goroutines.
type ItemFeatureIndex struct {
	features map[int32][]int32
	items    []int32
	dict     *FeatureDict
}

// BuildItemFeatureIndex remaps the subjects of triples through items and groups the
// (predicate, object) features by item. A subject missing from items or a triple without
// predicate is a data integrity error.
func BuildItemFeatureIndex(triples []Triple, items *Mapping[string, int32]) (*ItemFeatureIndex, error) {
	index := &ItemFeatureIndex{
		features: make(map[int32][]int32),
		dict:     NewFeatureDict(),
	}
	for i, triple := range triples {
		if triple.Predicate == "" {
			return nil, errors.NotValidf("triple %d (%v) without predicate", i, triple)
		}
		item, ok := items.Get(triple.Subject)
		if !ok {
			return nil, errors.NotFoundf("private id of item %v (triple %d)", triple.Subject, i)
		}
		feature := index.dict.Id(triple.Feature())
		index.features[item] = append(index.features[item], feature)
	}
	for item, features := range index.features {
		slices.Sort(features)
		index.features[item] = slices.Compact(features)
	}
	index.items = lo.Keys(index.features)
	slices.Sort(index.items)
	return index, nil
}

// Get returns the features of an item.
func (idx *ItemFeatureIndex) Get(item int32) ([]int32, bool) {
	features, ok := idx.features[item]
	return features, ok
}

func (idx *ItemFeatureIndex) Contains(item int32) bool {
	_, ok := idx.features[item]
	return ok
}

// Items returns indexed items in ascending order.
func (idx *ItemFeatureIndex) Items() []int32 {
	return idx.items
}

func (idx *ItemFeatureIndex) CountItems() int {
	return len(idx.items)
}

func (idx *ItemFeatureIndex) CountFeatures() int {
	return idx.dict.Count()
}

// Dict returns the feature dictionary used to assign feature ids.
func (idx *ItemFeatureIndex) Dict() *FeatureDict {
	return idx.dict
}
