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
	"github.com/juju/errors"
)

// Mapping is a one-to-one map between two id spaces, e.g. public item ids and private item
// ids. Both directions are looked up in constant time and keys keep their insertion order.
type Mapping[A, B comparable] struct {
	forward  map[A]B
	backward map[B]A
	keys     []A
}

// NewMapping creates an empty Mapping.
func NewMapping[A, B comparable]() *Mapping[A, B] {
	return &Mapping[A, B]{
		forward:  make(map[A]B),
		backward: make(map[B]A),
	}
}

// Put adds a pair. Adding an existing pair again is a no-op, but mapping a key or a value
// to a second partner fails because the mapping would stop being invertible.
func (m *Mapping[A, B]) Put(a A, b B) error {
	if old, exist := m.forward[a]; exist {
		if old == b {
			return nil
		}
		return errors.AlreadyExistsf("mapping of %v (to %v)", a, old)
	}
	if old, exist := m.backward[b]; exist {
		return errors.AlreadyExistsf("inverse mapping of %v (from %v)", b, old)
	}
	m.forward[a] = b
	m.backward[b] = a
	m.keys = append(m.keys, a)
	return nil
}

// Get returns the value mapped from a.
func (m *Mapping[A, B]) Get(a A) (B, bool) {
	b, ok := m.forward[a]
	return b, ok
}

// Key returns the key mapped to b.
func (m *Mapping[A, B]) Key(b B) (A, bool) {
	a, ok := m.backward[b]
	return a, ok
}

// Len returns the number of pairs.
func (m *Mapping[A, B]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns keys in insertion order.
func (m *Mapping[A, B]) Keys() []A {
	return m.keys
}

// Range calls f for each pair in insertion order until f returns false.
func (m *Mapping[A, B]) Range(f func(a A, b B) bool) {
	for _, a := range m.keys {
		if !f(a, m.forward[a]) {
			return
		}
	}
}

// Inverse returns the mapping in the opposite direction.
func (m *Mapping[A, B]) Inverse() *Mapping[B, A] {
	inverse := NewMapping[B, A]()
	for _, a := range m.keys {
		b := m.forward[a]
		inverse.forward[b] = a
		inverse.backward[a] = b
		inverse.keys = append(inverse.keys, b)
	}
	return inverse
}

// Compose chains ab and bc into a mapping from A to C, in the key order of ab. Every value
// of ab must be a key of bc.
func Compose[A, B, C comparable](ab *Mapping[A, B], bc *Mapping[B, C]) (*Mapping[A, C], error) {
	ac := NewMapping[A, C]()
	for _, a := range ab.keys {
		b := ab.forward[a]
		c, ok := bc.forward[b]
		if !ok {
			return nil, errors.NotFoundf("mapping of %v (composed from %v)", b, a)
		}
		if err := ac.Put(a, c); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return ac, nil
}
