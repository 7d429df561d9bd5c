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
	"github.com/chewxy/math32"
	"github.com/juju/errors"
)

// Criterion measures the impurity of a node from its weighted class counts.
type Criterion interface {
	Name() string
	Impurity(negative, positive float32) float32
}

type entropy struct{}

func (entropy) Name() string {
	return "entropy"
}

// Impurity returns the Shannon entropy in bits.
func (entropy) Impurity(negative, positive float32) float32 {
	total := negative + positive
	if total <= 0 {
		return 0
	}
	var h float32
	for _, count := range []float32{negative, positive} {
		if count > 0 {
			p := count / total
			h -= p * math32.Log2(p)
		}
	}
	return h
}

type gini struct{}

func (gini) Name() string {
	return "gini"
}

func (gini) Impurity(negative, positive float32) float32 {
	total := negative + positive
	if total <= 0 {
		return 0
	}
	p0, p1 := negative/total, positive/total
	return 1 - p0*p0 - p1*p1
}

// NewCriterion returns the criterion called name: "entropy" or "gini".
func NewCriterion(name string) (Criterion, error) {
	switch name {
	case "entropy":
		return entropy{}, nil
	case "gini":
		return gini{}, nil
	default:
		return nil, errors.NotValidf("criterion %v", name)
	}
}
