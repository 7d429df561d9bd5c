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

	"github.com/bits-and-blooms/bitset"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/kgtore/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var (
	// ErrNoPositives means the user has no liked item with knowledge graph features.
	ErrNoPositives = errors.New("user has no positive item in the knowledge graph")
	// ErrEmptyNegativePool means every indexed item is liked by the user.
	ErrEmptyNegativePool = errors.New("user has no candidate negative item")
)

// UserDataset is the labeled item x feature presence table of one user. Rows are the
// positive items in ascending order followed by the sampled negatives in sample order.
// Columns are the ids of the features present in at least one row, ascending.
type UserDataset struct {
	User    int32
	Items   []int32
	Labels  []bool
	Columns []int32
	Rows    []*bitset.BitSet

	positiveRows map[int32]int
}

// SampleNegatives draws npr * numPositives negatives from pool:
//   - without replacement if the pool is large enough;
//   - otherwise floor(len(pool) / numPositives) * numPositives items (or the whole pool if
//     that ratio is zero) without replacement, topped up with replacement to the target.
//
// The top-up can repeat items already drawn.
func SampleNegatives(rng base.RandomGenerator, pool []int32, numPositives, npr int) ([]int32, error) {
	target := npr * numPositives
	if target <= len(pool) {
		return base.Sample(rng, pool, target), nil
	}
	if len(pool) == 0 {
		return nil, errors.Trace(ErrEmptyNegativePool)
	}
	var negatives []int32
	if ratio := len(pool) / numPositives; ratio > 0 {
		negatives = base.Sample(rng, pool, ratio*numPositives)
	} else {
		negatives = slices.Clone(pool)
	}
	negatives = append(negatives, base.Choices(rng, pool, target-len(negatives))...)
	return negatives, nil
}

// NewUserDataset samples negatives for a user and one-hot encodes the features of positives
// and negatives. Positives without features are dropped since the tree cannot tell them
// apart. The generator is seeded from seed on every call, so the result depends only on the
// arguments.
func NewUserDataset(user int32, positives []int32, index *ItemFeatureIndex, npr int, seed int64) (*UserDataset, error) {
	positives = lo.Filter(lo.Uniq(positives), func(item int32, _ int) bool {
		return index.Contains(item)
	})
	if len(positives) == 0 {
		return nil, errors.Trace(ErrNoPositives)
	}
	slices.Sort(positives)

	// candidate negatives keep the ascending order of the index
	positiveSet := mapset.NewThreadUnsafeSet(positives...)
	pool := lo.Filter(index.Items(), func(item int32, _ int) bool {
		return !positiveSet.Contains(item)
	})
	rng := base.NewRandomGenerator(seed)
	negatives, err := SampleNegatives(rng, pool, len(positives), npr)
	if err != nil {
		return nil, errors.Trace(err)
	}

	d := &UserDataset{
		User:         user,
		Items:        make([]int32, 0, len(positives)+len(negatives)),
		Labels:       make([]bool, 0, len(positives)+len(negatives)),
		positiveRows: make(map[int32]int, len(positives)),
	}
	for _, item := range positives {
		d.positiveRows[item] = len(d.Items)
		d.Items = append(d.Items, item)
		d.Labels = append(d.Labels, true)
	}
	for _, item := range negatives {
		d.Items = append(d.Items, item)
		d.Labels = append(d.Labels, false)
	}

	// columns
	columnSet := mapset.NewThreadUnsafeSet[int32]()
	for _, item := range d.Items {
		features, _ := index.Get(item)
		columnSet.Append(features...)
	}
	d.Columns = columnSet.ToSlice()
	slices.Sort(d.Columns)
	columnIndex := make(map[int32]uint, len(d.Columns))
	for i, feature := range d.Columns {
		columnIndex[feature] = uint(i)
	}

	// rows
	d.Rows = make([]*bitset.BitSet, len(d.Items))
	for i, item := range d.Items {
		features, _ := index.Get(item)
		row := bitset.New(uint(len(d.Columns)))
		for _, feature := range features {
			row.Set(columnIndex[feature])
		}
		d.Rows[i] = row
	}
	return d, nil
}

// Count returns the number of rows.
func (d *UserDataset) Count() int {
	return len(d.Items)
}

func (d *UserDataset) CountColumns() int {
	return len(d.Columns)
}

func (d *UserDataset) CountPositive() int {
	return len(d.positiveRows)
}

func (d *UserDataset) CountNegative() int {
	return len(d.Items) - len(d.positiveRows)
}

// Has reports whether the feature of column col is present in row.
func (d *UserDataset) Has(row, col int) bool {
	return d.Rows[row].Test(uint(col))
}

// PositiveRow returns the row of a positive item.
func (d *UserDataset) PositiveRow(item int32) (int, bool) {
	row, ok := d.positiveRows[item]
	return row, ok
}
