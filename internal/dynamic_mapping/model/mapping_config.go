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

package model

// MappingConfiguration is the human-editable document of explicit
// corrections to the automatic mapping. It is read on each apply cycle and
// never mutated by the engine.
type MappingConfiguration struct {
	Version  string                 `yaml:"version" validate:"required"`
	Bindings []Binding              `yaml:"bindings" validate:"dive"`
	Renames  map[string]string      `yaml:"renames"`
	Merges   []MergeDirective       `yaml:"merges" validate:"dive"`
	Splits   map[string][]SplitPart `yaml:"splits" validate:"dive,min=2,dive"`
}

// Binding pins a normalized key to a parent product identifier. Bindings
// are processed in document order; a key bound to two different parents in
// one document rejects the later entry.
type Binding struct {
	Key      string `yaml:"key" validate:"required"`
	ParentID string `yaml:"parent_id" validate:"required"`
}

// MergeDirective folds the source parent's member set into the target and
// retires the source identifier.
type MergeDirective struct {
	Target string `yaml:"target" validate:"required"`
	Source string `yaml:"source" validate:"required"`
}

// SplitPart is one partition of a split parent's member keys. The parts of
// a split must cover all prior members of the identifier.
type SplitPart struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys" validate:"min=1,dive,required"`
}

// ApplyResult reports what a configuration apply did. Rejected entries are
// per-entry failures; the rest of the configuration still applied.
type ApplyResult struct {
	AppliedCount  int             `json:"applied_count"`
	ConflictCount int             `json:"conflict_count"`
	Rejected      []RejectedEntry `json:"rejected,omitempty"`
}

// RejectedEntry names one configuration entry that failed closed, with the
// reason it was refused.
type RejectedEntry struct {
	Section string `json:"section"`
	Target  string `json:"target"`
	Reason  string `json:"reason"`
}
