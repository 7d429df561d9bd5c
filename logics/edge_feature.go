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
	"bufio"
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gorse-io/kgtore/dataset"
	"github.com/gorse-io/kgtore/storage/blob"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// DecisionPathFile returns the blob name of the decision paths of a dataset.
func DecisionPathFile(datasetName string, npr int, criterion string) string {
	return fmt.Sprintf("%s/kgtore/decision_path%d_%s.tsv", datasetName, npr, criterion)
}

// WriteDecisionPaths saves records as "user\titem\tsigned_feature" lines without header. The
// file is written once all lines are encoded.
func WriteDecisionPaths(store blob.Store, name string, records []DecisionPathRecord) error {
	var buf bytes.Buffer
	line := make([]byte, 0, 64)
	for _, r := range records {
		line = line[:0]
		line = strconv.AppendInt(line, int64(r.User), 10)
		line = append(line, '\t')
		line = strconv.AppendInt(line, int64(r.Item), 10)
		line = append(line, '\t')
		line = strconv.AppendInt(line, int64(r.Feature), 10)
		line = append(line, '\n')
		buf.Write(line)
	}

	w, done, err := store.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = w.Write(buf.Bytes()); err != nil {
		_ = w.Close()
		<-done
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		<-done
		return errors.Trace(err)
	}
	<-done
	return nil
}

// ReadDecisionPaths loads records saved by WriteDecisionPaths.
func ReadDecisionPaths(store blob.Store, name string) ([]DecisionPathRecord, error) {
	r, err := store.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	var records []DecisionPathRecord
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if scanner.Text() == "" {
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 3 {
			return nil, errors.NotValidf("line %d of %s", lineNumber, name)
		}
		var values [3]int64
		for i, field := range fields {
			if values[i], err = strconv.ParseInt(field, 10, 32); err != nil {
				return nil, errors.Annotatef(err, "line %d of %s", lineNumber, name)
			}
		}
		records = append(records, DecisionPathRecord{User: int32(values[0]), Item: int32(values[1]), Feature: int32(values[2])})
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return records, nil
}

// EdgeFeatureMatrix is a sparse interaction x feature matrix in CSR format. Row i holds the
// columns RowPtr[i]:RowPtr[i+1] of ColIndices and Values, in ascending column order.
type EdgeFeatureMatrix struct {
	NumRows    int
	NumColumns int
	RowPtr     []int32
	ColIndices []int32
	Values     []float32
	// Device is the placement requested by the consumer of the matrix.
	Device string
}

// NNZ returns the number of stored entries.
func (m *EdgeFeatureMatrix) NNZ() int {
	return len(m.Values)
}

// Row returns the columns and values of a row.
func (m *EdgeFeatureMatrix) Row(row int) ([]int32, []float32) {
	begin, end := m.RowPtr[row], m.RowPtr[row+1]
	return m.ColIndices[begin:end], m.Values[begin:end]
}

// Get returns an entry, zero if not stored.
func (m *EdgeFeatureMatrix) Get(row, col int) float32 {
	cols, values := m.Row(row)
	if i, found := slices.BinarySearch(cols, int32(col)); found {
		return values[i]
	}
	return 0
}

type entry struct {
	row   int32
	col   int32
	value float32
}

// NewEdgeFeatureMatrix converts decision path records into an edge feature matrix. Rows are
// the known interactions in (user, item) order and columns are the features used by records,
// numbered in first-seen order. A record adds sign / n to its entry, where n is the number of
// records of the same interaction. The returned mapping maps columns to features.
func NewEdgeFeatureMatrix(
	records []DecisionPathRecord,
	interactions *dataset.Interactions,
	dict *dataset.FeatureDict,
	device string,
) (*EdgeFeatureMatrix, *dataset.Mapping[int32, dataset.Feature], error) {
	// rows
	pairs := interactions.Pairs()
	rowIndex := make(map[lo.Tuple2[int32, int32]]int32, len(pairs))
	for i, pair := range pairs {
		rowIndex[pair] = int32(i)
	}

	// compact feature ids
	columns := dataset.NewMapping[int32, int32]()
	entries := make([]entry, 0, len(records))
	rowCounts := make(map[int32]int)
	for _, r := range records {
		if r.Feature == dataset.NoFeature {
			return nil, nil, errors.NotValidf("record (%d, %d) without feature", r.User, r.Item)
		}
		row, ok := rowIndex[lo.Tuple2[int32, int32]{A: r.User, B: r.Item}]
		if !ok {
			return nil, nil, errors.NotFoundf("interaction (%d, %d)", r.User, r.Item)
		}
		col, ok := columns.Key(r.FeatureID())
		if !ok {
			col = int32(columns.Len())
			if err := columns.Put(col, r.FeatureID()); err != nil {
				return nil, nil, errors.Trace(err)
			}
		}
		rowCounts[row]++
		entries = append(entries, entry{row: row, col: col, value: r.Sign()})
	}
	mapping, err := dataset.Compose(columns, dict.Mapping())
	if err != nil {
		return nil, nil, errors.Trace(err)
	}

	// normalize
	for i := range entries {
		entries[i].value /= float32(rowCounts[entries[i].row])
	}

	// sort and merge duplicates
	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.row, b.row); c != 0 {
			return c
		}
		return cmp.Compare(a.col, b.col)
	})
	m := &EdgeFeatureMatrix{
		NumRows:    len(pairs),
		NumColumns: columns.Len(),
		RowPtr:     make([]int32, len(pairs)+1),
		Device:     device,
	}
	for i, e := range entries {
		if i > 0 && entries[i-1].row == e.row && entries[i-1].col == e.col {
			m.Values[len(m.Values)-1] += e.value
			continue
		}
		m.ColIndices = append(m.ColIndices, e.col)
		m.Values = append(m.Values, e.value)
		m.RowPtr[e.row+1]++
	}
	for i := 1; i < len(m.RowPtr); i++ {
		m.RowPtr[i] += m.RowPtr[i-1]
	}
	return m, mapping, nil
}

// BuildEdgeFeatures saves raw records to store and then builds the edge feature matrix. No
// matrix is built if records cannot be saved.
func BuildEdgeFeatures(
	store blob.Store,
	name string,
	records []DecisionPathRecord,
	interactions *dataset.Interactions,
	dict *dataset.FeatureDict,
	device string,
) (*EdgeFeatureMatrix, *dataset.Mapping[int32, dataset.Feature], error) {
	if err := WriteDecisionPaths(store, name, records); err != nil {
		return nil, nil, errors.Trace(err)
	}
	return NewEdgeFeatureMatrix(records, interactions, dict, device)
}
