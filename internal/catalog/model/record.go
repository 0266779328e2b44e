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

// RawProductRecord is an as-ingested product entry from a single source
// table. Immutable once ingested; identified by (Source, SourceID).
type RawProductRecord struct {
	Source   string   `json:"source"`
	SourceID string   `json:"source_id"`
	RawName  string   `json:"raw_name"`
	Price    *float64 `json:"price,omitempty"`
	Stock    *int     `json:"stock,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// RecordID returns the record's identity across sources.
func (r RawProductRecord) RecordID() string {
	return r.Source + "/" + r.SourceID
}

// KeyedRecord pairs a raw record with its normalized key.
type KeyedRecord struct {
	Record RawProductRecord
	Key    string
}

// ParentProduct is the canonical, deduplicated product entity that one or
// more raw source records map to. The ParentID is generated once and never
// changes for the same logical product across runs.
type ParentProduct struct {
	ParentID     string    `json:"parent_product_id" bson:"parent_product_id"`
	Name         string    `json:"parent_product_name" bson:"parent_product_name"`
	CanonicalKey string    `json:"canonical_key" bson:"canonical_key"`
	MemberKeys   []string  `json:"member_keys" bson:"member_keys"`
	Retired      bool      `json:"retired" bson:"retired"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// MappingEntry binds a normalized key to a parent product identifier.
// Overrides always win over auto entries for the same key.
type MappingEntry struct {
	Key        string    `json:"normalized_key"`
	ParentID   string    `json:"parent_product_id"`
	Provenance string    `json:"provenance"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CatalogEntry is one published row of the master catalog.
type CatalogEntry struct {
	ParentID       string    `json:"parent_product_id"`
	ParentName     string    `json:"parent_product_name"`
	ChildRecordIDs []string  `json:"child_product_ids"`
	ChildNames     []string  `json:"child_product_names"`
	MemberKeys     []string  `json:"member_keys"`
	CreatedAt      time.Time `json:"created_at"`
}

// Assignment links one raw record to its resolved parent, so export
// collaborators can stamp parent ids back onto source rows.
type Assignment struct {
	Source     string `json:"source"`
	SourceID   string `json:"source_id"`
	ParentID   string `json:"parent_product_id"`
	ParentName string `json:"parent_product_name"`
}
