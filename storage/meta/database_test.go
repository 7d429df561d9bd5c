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

package meta

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) TestRuns() {
	ctx := context.Background()
	_, err := suite.Database.GetRun(ctx, uuid.NewString())
	suite.True(errors.Is(err, errors.NotFound))
	_, err = suite.Database.LatestRun(ctx, "movielens")
	suite.True(errors.Is(err, errors.NotFound))

	// insert runs
	older := &Run{
		ID:         uuid.NewString(),
		Dataset:    "movielens",
		NPR:        10,
		Criterion:  "entropy",
		Seed:       42,
		Device:     "cpu",
		Path:       "movielens/kgtore/decision_path10_entropy.tsv",
		Users:      3,
		Skipped:    1,
		Records:    5,
		Rows:       7,
		Columns:    2,
		CreateTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	suite.NoError(suite.Database.SaveRun(ctx, older, []Feature{
		{Column: 0, FeatureID: 17, Predicate: "genre", Object: "drama", Freq: 3},
		{Column: 1, FeatureID: 2, Predicate: "director", Object: "nolan", Freq: 1},
	}))
	newer := &Run{
		ID:         uuid.NewString(),
		Dataset:    "movielens",
		NPR:        4,
		Criterion:  "gini",
		CreateTime: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	suite.NoError(suite.Database.SaveRun(ctx, newer, nil))

	run, err := suite.Database.GetRun(ctx, older.ID)
	suite.NoError(err)
	suite.Equal("entropy", run.Criterion)
	suite.Equal(7, run.Rows)
	suite.Equal(older.Path, run.Path)
	run, err = suite.Database.LatestRun(ctx, "movielens")
	suite.NoError(err)
	suite.Equal(newer.ID, run.ID)

	features, err := suite.Database.GetFeatures(ctx, older.ID)
	suite.NoError(err)
	if suite.Len(features, 2) {
		suite.Equal(int32(0), features[0].Column)
		suite.Equal(int32(17), features[0].FeatureID)
		suite.Equal("genre", features[0].Predicate)
		suite.Equal("drama", features[0].Object)
		suite.Equal(3, features[0].Freq)
		suite.Equal(int32(1), features[1].Column)
		suite.Equal(older.ID, features[1].RunID)
	}
	features, err = suite.Database.GetFeatures(ctx, newer.ID)
	suite.NoError(err)
	suite.Empty(features)

	// replace a run
	older.Records = 6
	suite.NoError(suite.Database.SaveRun(ctx, older, []Feature{
		{Column: 0, FeatureID: 2, Predicate: "director", Object: "nolan", Freq: 1},
	}))
	run, err = suite.Database.GetRun(ctx, older.ID)
	suite.NoError(err)
	suite.Equal(6, run.Records)
	features, err = suite.Database.GetFeatures(ctx, older.ID)
	suite.NoError(err)
	if suite.Len(features, 1) {
		suite.Equal(int32(2), features[0].FeatureID)
	}
}
