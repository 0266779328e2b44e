/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package service

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/wso2/product-master-data-service/internal/dynamic_mapping/model"
	"github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

var validate = validator.New()

// LoadConfiguration reads and schema-validates a mapping configuration
// document. A malformed document fails the whole call with a configuration
// error before any entry is processed.
func LoadConfiguration(path string) (*model.MappingConfiguration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("failed to read mapping configuration %s: %v", path, err))
	}
	return ParseConfiguration(raw)
}

// ParseConfiguration unmarshals and validates a mapping configuration
// document from raw YAML.
func ParseConfiguration(raw []byte) (*model.MappingConfiguration, error) {
	var cfg model.MappingConfiguration
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("mapping configuration is not valid YAML: %v", err))
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("mapping configuration failed schema validation: %v", err))
	}

	for parentID, parts := range cfg.Splits {
		if parentID == "" {
			return nil, errors.NewConfigurationError("splits section contains an empty parent id")
		}
		seen := make(map[string]bool)
		for _, part := range parts {
			for _, key := range part.Keys {
				if seen[key] {
					return nil, errors.NewConfigurationError(
						fmt.Sprintf("split of %s lists key %q in more than one part", parentID, key))
				}
				seen[key] = true
			}
		}
	}

	for _, merge := range cfg.Merges {
		if merge.Target == merge.Source {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("merge directive targets itself: %s", merge.Target))
		}
	}

	log.GetLogger().Info("Loaded mapping configuration",
		log.String("version", cfg.Version),
		log.Int("bindings", len(cfg.Bindings)),
		log.Int("renames", len(cfg.Renames)),
		log.Int("merges", len(cfg.Merges)),
		log.Int("splits", len(cfg.Splits)))
	return &cfg, nil
}
