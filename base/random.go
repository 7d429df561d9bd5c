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
	"math/rand"
)

// RandomGenerator is the random generator for kgtore. It is not safe for concurrent use, so
// every task creates its own from an explicit seed.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// Sample draws k distinct positions of a without replacement, in draw order. The input slice
// is not modified. If k >= len(a), a shuffled copy of a is returned.
func Sample[T any](rng RandomGenerator, a []T, k int) []T {
	pool := make([]T, len(a))
	copy(pool, a)
	k = min(k, len(pool))
	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Choices draws k elements of a with replacement.
func Choices[T any](rng RandomGenerator, a []T, k int) []T {
	if len(a) == 0 {
		return nil
	}
	sampled := make([]T, k)
	for i := range sampled {
		sampled[i] = a[rng.Intn(len(a))]
	}
	return sampled
}
