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

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelStatus = "status"
	LabelStep   = "step"
)

var (
	UsersTotalVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kgtore",
		Subsystem: "worker",
		Name:      "users_total",
	}, []string{LabelStatus})
	DecisionPathRecordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kgtore",
		Subsystem: "worker",
		Name:      "decision_path_records_total",
	})
	EdgeFeatureColumnsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kgtore",
		Subsystem: "worker",
		Name:      "edge_feature_columns_total",
	})
	StepSecondsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kgtore",
		Subsystem: "worker",
		Name:      "step_seconds",
	}, []string{LabelStep})
	TotalSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kgtore",
		Subsystem: "worker",
		Name:      "total_seconds",
	})
)
