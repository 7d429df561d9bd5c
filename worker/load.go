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
	"github.com/gorse-io/kgtore/common/log"
	"github.com/gorse-io/kgtore/config"
	"github.com/gorse-io/kgtore/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// LoadDataset reads the knowledge graph and interactions of a dataset and builds the item
// feature index. Without an item mapping file, private ids are assigned to knowledge graph
// subjects first and then to unseen interaction items.
func LoadDataset(cfg config.DatasetConfig) (*dataset.ItemFeatureIndex, *dataset.Interactions, error) {
	triples, err := dataset.LoadTriples(cfg.Path(cfg.KGFile))
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to load knowledge graph")
	}

	var items *dataset.Mapping[string, int32]
	if cfg.ItemMappingFile != "" {
		items, err = dataset.LoadItemMapping(cfg.Path(cfg.ItemMappingFile))
		if err != nil {
			return nil, nil, errors.Annotate(err, "failed to load item mapping")
		}
	} else {
		items = dataset.NewMapping[string, int32]()
		dataset.ExtendItemMapping(items, triples)
	}

	index, err := dataset.BuildItemFeatureIndex(triples, items)
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to build item feature index")
	}
	interactions, err := dataset.LoadInteractions(cfg.Path(cfg.InteractionFile), items, cfg.ItemMappingFile == "")
	if err != nil {
		return nil, nil, errors.Annotate(err, "failed to load interactions")
	}
	if cfg.TargetFile != "" {
		if err = dataset.LoadTargets(cfg.Path(cfg.TargetFile), interactions); err != nil {
			return nil, nil, errors.Annotate(err, "failed to load targets")
		}
	}
	log.Logger().Info("load dataset",
		zap.String("name", cfg.Name),
		zap.Int("n_triples", len(triples)),
		zap.Int("n_items", items.Len()),
		zap.Int("n_indexed_items", index.CountItems()),
		zap.Int("n_features", index.CountFeatures()),
		zap.Int("n_users", interactions.Users.Len()),
		zap.Int("n_interactions", interactions.Count()))
	return index, interactions, nil
}
