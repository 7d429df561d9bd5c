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

package base

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

func TestSample(t *testing.T) {
	a := []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	rng := NewRandomGenerator(0)
	for k := 0; k <= 12; k++ {
		sampled := Sample(rng, a, k)
		assert.Len(t, sampled, min(k, len(a)))
		// without replacement
		assert.Equal(t, len(sampled), mapset.NewSet(sampled...).Cardinality())
		assert.True(t, mapset.NewSet(a...).IsSuperset(mapset.NewSet(sampled...)))
	}
	// input untouched
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, a)
}

func TestSampleDeterministic(t *testing.T) {
	a := []int{10, 20, 30, 40, 50, 60}
	assert.Equal(t, Sample(NewRandomGenerator(42), a, 3), Sample(NewRandomGenerator(42), a, 3))
}

func TestChoices(t *testing.T) {
	a := []int32{7, 8, 9}
	rng := NewRandomGenerator(0)
	sampled := Choices(rng, a, 20)
	assert.Len(t, sampled, 20)
	assert.True(t, mapset.NewSet(a...).IsSuperset(mapset.NewSet(sampled...)))
	assert.Nil(t, Choices(rng, []int32{}, 3))
}
