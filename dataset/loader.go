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
	"bufio"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/samber/lo"
)

const maxLineSize = 1 << 20

// Interactions are the positive feedback of users, keyed by private ids.
type Interactions struct {
	Users *Mapping[string, int32]
	Items *Mapping[string, int32]
	// Positives maps user -> item -> signal. Only the keys are used.
	Positives map[int32]map[int32]float32
	// Targets optionally overrides, per user, the items whose decision paths are extracted.
	Targets map[int32][]int32
}

func NewInteractions(items *Mapping[string, int32]) *Interactions {
	return &Interactions{
		Users:     NewMapping[string, int32](),
		Items:     items,
		Positives: make(map[int32]map[int32]float32),
		Targets:   make(map[int32][]int32),
	}
}

// Add a positive interaction between private ids.
func (i *Interactions) Add(user, item int32, signal float32) {
	if _, ok := i.Positives[user]; !ok {
		i.Positives[user] = make(map[int32]float32)
	}
	i.Positives[user][item] = signal
}

// UserIds returns users with at least one interaction, ascending.
func (i *Interactions) UserIds() []int32 {
	users := lo.Keys(i.Positives)
	slices.Sort(users)
	return users
}

// PositiveItems returns the liked items of a user, ascending.
func (i *Interactions) PositiveItems(user int32) []int32 {
	items := lo.Keys(i.Positives[user])
	slices.Sort(items)
	return items
}

// TargetItems returns the items whose decision paths are extracted for a user. It falls
// back to the positive items.
func (i *Interactions) TargetItems(user int32) []int32 {
	if targets, ok := i.Targets[user]; ok {
		return targets
	}
	return i.PositiveItems(user)
}

// Pairs returns all (user, item) interactions ordered by user then item. The position of a
// pair in this list is its interaction index.
func (i *Interactions) Pairs() []lo.Tuple2[int32, int32] {
	pairs := make([]lo.Tuple2[int32, int32], 0, i.Count())
	for _, user := range i.UserIds() {
		for _, item := range i.PositiveItems(user) {
			pairs = append(pairs, lo.Tuple2[int32, int32]{A: user, B: item})
		}
	}
	return pairs
}

// Count returns the number of interactions.
func (i *Interactions) Count() int {
	n := 0
	for _, items := range i.Positives {
		n += len(items)
	}
	return n
}

// readLines calls handler with the tab separated fields of every non-empty line.
func readLines(path string, minFields int, handler func(lineNumber int, fields []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < minFields {
			return errors.NotValidf("line %d of %s: expect %d fields but got %d", lineNumber, path, minFields, len(fields))
		}
		if err = handler(lineNumber, fields); err != nil {
			return errors.Annotatef(err, "line %d of %s", lineNumber, path)
		}
	}
	return errors.Trace(scanner.Err())
}

// LoadTriples loads a knowledge graph in the format of "subject\tpredicate\tobject".
func LoadTriples(path string) ([]Triple, error) {
	var triples []Triple
	err := readLines(path, 3, func(_ int, fields []string) error {
		triples = append(triples, Triple{Subject: fields[0], Predicate: fields[1], Object: fields[2]})
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return triples, nil
}

// LoadItemMapping loads public -> private item ids in the format of "public\tprivate".
func LoadItemMapping(path string) (*Mapping[string, int32], error) {
	items := NewMapping[string, int32]()
	err := readLines(path, 2, func(_ int, fields []string) error {
		private, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return errors.Trace(err)
		}
		return items.Put(fields[0], int32(private))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return items, nil
}

// ExtendItemMapping assigns the next free private ids to subjects of triples missing from
// items, in first-seen order.
func ExtendItemMapping(items *Mapping[string, int32], triples []Triple) {
	next := nextId(items)
	for _, triple := range triples {
		if _, ok := items.Get(triple.Subject); !ok {
			lo.Must0(items.Put(triple.Subject, next))
			next++
		}
	}
}

func nextId(items *Mapping[string, int32]) int32 {
	next := int32(0)
	items.Range(func(_ string, id int32) bool {
		next = max(next, id+1)
		return true
	})
	return next
}

// LoadInteractions loads positive feedback in the format of "user\titem[\tsignal]". Users get
// private ids in first-seen order. An item missing from items is an error unless extend is
// set, in which case it receives the next free private id.
func LoadInteractions(path string, items *Mapping[string, int32], extend bool) (*Interactions, error) {
	interactions := NewInteractions(items)
	nextItem := nextId(items)
	err := readLines(path, 2, func(_ int, fields []string) error {
		user, ok := interactions.Users.Get(fields[0])
		if !ok {
			user = int32(interactions.Users.Len())
			if err := interactions.Users.Put(fields[0], user); err != nil {
				return errors.Trace(err)
			}
		}
		item, ok := items.Get(fields[1])
		if !ok {
			if !extend {
				return errors.NotFoundf("private id of item %v", fields[1])
			}
			item = nextItem
			nextItem++
			if err := items.Put(fields[1], item); err != nil {
				return errors.Trace(err)
			}
		}
		signal := float32(1)
		if len(fields) > 2 {
			value, err := strconv.ParseFloat(fields[2], 32)
			if err != nil {
				return errors.Trace(err)
			}
			signal = float32(value)
		}
		interactions.Add(user, item, signal)
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return interactions, nil
}

// LoadTargets loads the per-user items whose decision paths are extracted, in the format of
// "user\titem". Users and items must already be known.
func LoadTargets(path string, interactions *Interactions) error {
	return readLines(path, 2, func(_ int, fields []string) error {
		user, ok := interactions.Users.Get(fields[0])
		if !ok {
			return errors.NotFoundf("private id of user %v", fields[0])
		}
		item, ok := interactions.Items.Get(fields[1])
		if !ok {
			return errors.NotFoundf("private id of item %v", fields[1])
		}
		interactions.Targets[user] = append(interactions.Targets[user], item)
		return nil
	})
}
