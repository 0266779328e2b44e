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

package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
)

// MappingStore is the authoritative, versioned mapping from normalized key
// to parent product identity. Writes are upserts; an identifier already
// bound to a parent product is never blindly overwritten.
type MappingStore interface {
	// Get returns the mapping entry for a key, or nil when absent.
	Get(key string) (*model.MappingEntry, error)
	// UpsertAuto records a matcher proposal. An existing entry for the key
	// wins regardless of provenance: overrides beat auto unconditionally,
	// and a previously assigned auto binding stays put so parent identities
	// remain stable across runs. parentName is used only when the proposal
	// founds a new parent product.
	UpsertAuto(key, proposedParentKey, parentName string) error
	// UpsertOverride binds a key to a parent on behalf of the mapping
	// configuration. Overrides replace auto entries and other overrides.
	// Binding to a retired identifier is refused.
	UpsertOverride(key, parentID string) error
	// List returns every mapping entry.
	List() ([]model.MappingEntry, error)

	// Parents returns all active (non-retired) parent products.
	Parents() ([]model.ParentProduct, error)
	// RetiredParents returns the tombstone set.
	RetiredParents() ([]model.ParentProduct, error)
	// GetParent returns a parent product by identifier, retired or not,
	// or nil when absent.
	GetParent(parentID string) (*model.ParentProduct, error)
	// CreateParent adds a parent product with a caller-chosen identifier.
	// Fails if the identifier is already taken, including by a tombstone.
	CreateParent(parent model.ParentProduct) error
	// RenameParent updates a parent product's display name.
	RenameParent(parentID, name string) error
	// RetireParent marks a parent as a tombstone. Retired identifiers are
	// never reassigned. The parent's entries are not touched; the caller
	// rebinds them first.
	RetireParent(parentID string) error
}

// ErrRetiredParent is returned when a write references a tombstone.
type ErrRetiredParent struct {
	ParentID string
}

func (e *ErrRetiredParent) Error() string {
	return fmt.Sprintf("parent product %s is retired and cannot be bound", e.ParentID)
}

// ErrParentExists is returned when a create references an identifier that
// is already assigned, including to a tombstone.
type ErrParentExists struct {
	ParentID string
}

func (e *ErrParentExists) Error() string {
	return fmt.Sprintf("parent product %s already exists", e.ParentID)
}

// ErrUnknownParent is returned when a rename or retire references an
// identifier that was never assigned.
type ErrUnknownParent struct {
	ParentID string
}

func (e *ErrUnknownParent) Error() string {
	return fmt.Sprintf("parent product %s does not exist", e.ParentID)
}

// StableParentID derives the identifier for a new parent product from its
// founding canonical key, the same way the legacy catalog generated them.
// Recomputing for the same key always yields the same identifier. When the
// derived identifier is already taken (the previous holder was retired), a
// numbered suffix is folded into the derivation so tombstoned identifiers
// are never reused.
func StableParentID(canonicalKey string, taken func(string) bool) string {
	id := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(canonicalKey)).String()
	for n := 1; taken(id); n++ {
		id = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%s#%d", canonicalKey, n))).String()
	}
	return id
}
