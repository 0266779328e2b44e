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

import "time"

// VerificationReport is the advisory output of a consistency check. It is
// consumed by operator tooling and logging, never by downstream analytics,
// and producing it never mutates the mapping store.
type VerificationReport struct {
	// OrphanKeys are keys whose binding points at a missing or retired
	// parent product.
	OrphanKeys []string `json:"orphan_keys,omitempty"`
	// DuplicateBindings are keys found in more than one parent's member
	// set.
	DuplicateBindings []string `json:"duplicate_bindings,omitempty"`
	// EmptyParents are active parent products that own no member keys.
	EmptyParents []string `json:"empty_parents,omitempty"`
	// BrokenStability lists baseline identifiers that no longer resolve
	// to the same logical cluster.
	BrokenStability []StabilityViolation `json:"broken_stability,omitempty"`

	CheckedEntries int `json:"checked_entries"`
	CheckedParents int `json:"checked_parents"`
}

// Clean reports whether the check found nothing to flag.
func (r *VerificationReport) Clean() bool {
	return len(r.OrphanKeys) == 0 &&
		len(r.DuplicateBindings) == 0 &&
		len(r.EmptyParents) == 0 &&
		len(r.BrokenStability) == 0
}

// StabilityViolation flags a baseline parent whose member keys no longer
// map to its identifier. Escalation is a human responsibility.
type StabilityViolation struct {
	ParentID string  `json:"parent_id"`
	Name     string  `json:"name"`
	Overlap  float64 `json:"overlap"`
	Reason   string  `json:"reason"`
}

// BaselineSnapshot is the parent membership recorded after a published
// run, used by later runs to check identifier stability.
type BaselineSnapshot struct {
	RecordedAt time.Time        `json:"recorded_at" bson:"recorded_at"`
	Version    string           `json:"version" bson:"version"`
	Parents    []BaselineParent `json:"parents" bson:"parents"`
}

// BaselineParent is one parent product's membership at snapshot time.
type BaselineParent struct {
	ParentID   string   `json:"parent_id" bson:"parent_id"`
	Name       string   `json:"name" bson:"name"`
	MemberKeys []string `json:"member_keys" bson:"member_keys"`
}
