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

// Triple is a knowledge graph fact whose subject is always an item.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// Feature is the composite (predicate, object) key of a triple. Two triples with the same
// predicate and object describe the same feature of different items.
type Feature struct {
	Predicate string
	Object    string
}

func (f Feature) String() string {
	return f.Predicate + "-" + f.Object
}

// Feature of a triple.
func (t Triple) Feature() Feature {
	return Feature{Predicate: t.Predicate, Object: t.Object}
}
