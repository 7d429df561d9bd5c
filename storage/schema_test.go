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

package storage

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	url, err := AppendURLParams(`sqlite.db`, []lo.Tuple2[string, string]{{A: "a", B: "b"}})
	assert.NoError(t, err)
	assert.Equal(t, `sqlite.db?a=b`, url)

	url, err = AppendURLParams(`sqlite:///tmp/features.db?a=b`, []lo.Tuple2[string, string]{{A: "c", B: "d"}})
	assert.NoError(t, err)
	assert.Equal(t, `sqlite:///tmp/features.db?a=b&c=d`, url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("kgtore:pass@tcp(localhost:3306)/kgtore?sql_mode=ANSI", map[string]string{
		"sql_mode":  "TRADITIONAL",
		"time_zone": "UTC",
	})
	assert.NoError(t, err)
	assert.Contains(t, dsn, "sql_mode=ANSI")
	assert.NotContains(t, dsn, "TRADITIONAL")
	assert.Contains(t, dsn, "time_zone=UTC")

	_, err = AppendMySQLParams("kgtore:pass@localhost:3306", nil)
	assert.Error(t, err)
}

func TestNewGORMConfig(t *testing.T) {
	cfg := NewGORMConfig("kgtore_")
	assert.True(t, cfg.SkipDefaultTransaction)
	assert.Equal(t, "kgtore_run", cfg.NamingStrategy.TableName("Run"))
}
