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

// NoFeature is the reserved feature id. Real features start at 1 so that a signed feature
// id never collapses to zero.
const NoFeature int32 = 0

// FeatureDict assigns feature ids in first-seen order and counts how many triples refer to
// each feature.
type FeatureDict struct {
	si  map[Feature]int32
	is  []Feature
	cnt []int
}

func NewFeatureDict() (d *FeatureDict) {
	// slot 0 holds the NoFeature sentinel
	d = &FeatureDict{map[Feature]int32{}, []Feature{{}}, []int{0}}
	return
}

// Count returns the number of features, excluding the sentinel.
func (d *FeatureDict) Count() int {
	return len(d.is) - 1
}

// Id returns the id of f, assigning the next one if f is new, and counts the occurrence.
func (d *FeatureDict) Id(f Feature) (y int32) {
	if y, ok := d.si[f]; ok {
		d.cnt[y]++
		return y
	}

	y = int32(len(d.is))
	d.si[f] = y
	d.is = append(d.is, f)
	d.cnt = append(d.cnt, 1)
	return
}

// Lookup returns the id of f without assigning or counting.
func (d *FeatureDict) Lookup(f Feature) (int32, bool) {
	y, ok := d.si[f]
	return y, ok
}

func (d *FeatureDict) Feature(id int32) (f Feature, ok bool) {
	if id <= NoFeature || int(id) >= len(d.is) {
		return Feature{}, false
	}
	return d.is[id], true
}

func (d *FeatureDict) Freq(id int32) int {
	if id <= NoFeature || int(id) >= len(d.cnt) {
		return 0
	}
	return d.cnt[id]
}

// Mapping returns the id -> feature table in id order.
func (d *FeatureDict) Mapping() *Mapping[int32, Feature] {
	m := NewMapping[int32, Feature]()
	for id := 1; id < len(d.is); id++ {
		m.forward[int32(id)] = d.is[id]
		m.backward[d.is[id]] = int32(id)
		m.keys = append(m.keys, int32(id))
	}
	return m
}
