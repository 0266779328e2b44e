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
	"sort"
	"time"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

// MemoryStore is an in-memory MappingStore. The batch pipeline runs against
// already-materialized record sets, so a run can stage its mapping here and
// a collaborator persists the published result.
type MemoryStore struct {
	entries map[string]model.MappingEntry
	parents map[string]*model.ParentProduct
	// byCanonicalKey indexes active parents by founding key.
	byCanonicalKey map[string]string
	now            func() time.Time
}

// NewMemoryStore creates an empty in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:        make(map[string]model.MappingEntry),
		parents:        make(map[string]*model.ParentProduct),
		byCanonicalKey: make(map[string]string),
		now:            time.Now,
	}
}

// Get returns the mapping entry for a key, or nil when absent.
func (s *MemoryStore) Get(key string) (*model.MappingEntry, error) {
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// UpsertAuto records a matcher proposal for a key.
func (s *MemoryStore) UpsertAuto(key, proposedParentKey, parentName string) error {
	if _, ok := s.entries[key]; ok {
		// An assigned binding wins: overrides unconditionally, and prior
		// auto bindings for identifier stability across runs.
		return nil
	}

	parentID, ok := s.byCanonicalKey[proposedParentKey]
	if !ok {
		// A key already bound by an earlier proposal or override attaches
		// its cluster to that parent instead of founding a new one, unless
		// that parent has since been retired.
		if entry, bound := s.entries[proposedParentKey]; bound {
			if parent, exists := s.parents[entry.ParentID]; exists && !parent.Retired {
				parentID = entry.ParentID
			}
		}
		if parentID == "" {
			parentID = s.createParentLocked(proposedParentKey, parentName)
		}
	}

	s.bind(key, parentID, constants.ProvenanceAuto)
	return nil
}

// UpsertOverride binds a key to a parent on behalf of the mapping
// configuration.
func (s *MemoryStore) UpsertOverride(key, parentID string) error {
	parent, ok := s.parents[parentID]
	if ok && parent.Retired {
		return &ErrRetiredParent{ParentID: parentID}
	}
	if !ok {
		// Overrides may introduce brand new parents with operator-chosen
		// identifiers.
		s.parents[parentID] = &model.ParentProduct{
			ParentID:     parentID,
			Name:         key,
			CanonicalKey: key,
			CreatedAt:    s.now().UTC(),
		}
		s.byCanonicalKey[key] = parentID
		log.GetLogger().Audit(log.AuditEvent{
			ActionID:   log.ActionCreateParent,
			TargetID:   parentID,
			TargetType: log.TargetParentProduct,
		})
	}

	s.bind(key, parentID, constants.ProvenanceOverride)
	return nil
}

// List returns every mapping entry sorted by key.
func (s *MemoryStore) List() ([]model.MappingEntry, error) {
	out := make([]model.MappingEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Parents returns all active parent products sorted by name.
func (s *MemoryStore) Parents() ([]model.ParentProduct, error) {
	return s.listParents(false), nil
}

// RetiredParents returns the tombstone set sorted by name.
func (s *MemoryStore) RetiredParents() ([]model.ParentProduct, error) {
	return s.listParents(true), nil
}

// GetParent returns a parent product by identifier, or nil when absent.
func (s *MemoryStore) GetParent(parentID string) (*model.ParentProduct, error) {
	parent, ok := s.parents[parentID]
	if !ok {
		return nil, nil
	}
	copied := *parent
	copied.MemberKeys = append([]string(nil), parent.MemberKeys...)
	return &copied, nil
}

// CreateParent adds a parent product with a caller-chosen identifier.
func (s *MemoryStore) CreateParent(parent model.ParentProduct) error {
	if _, exists := s.parents[parent.ParentID]; exists {
		return &ErrParentExists{ParentID: parent.ParentID}
	}
	if parent.CreatedAt.IsZero() {
		parent.CreatedAt = s.now().UTC()
	}
	stored := parent
	stored.MemberKeys = nil
	s.parents[parent.ParentID] = &stored
	if parent.CanonicalKey != "" && !parent.Retired {
		s.byCanonicalKey[parent.CanonicalKey] = parent.ParentID
	}
	return nil
}

// RenameParent updates a parent product's display name.
func (s *MemoryStore) RenameParent(parentID, name string) error {
	parent, ok := s.parents[parentID]
	if !ok {
		return &ErrUnknownParent{ParentID: parentID}
	}
	parent.Name = name
	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   log.ActionRenameParent,
		TargetID:   parentID,
		TargetType: log.TargetParentProduct,
		Data:       name,
	})
	return nil
}

// RetireParent marks a parent as a tombstone.
func (s *MemoryStore) RetireParent(parentID string) error {
	parent, ok := s.parents[parentID]
	if !ok {
		return &ErrUnknownParent{ParentID: parentID}
	}
	if parent.Retired {
		return nil
	}
	parent.Retired = true
	delete(s.byCanonicalKey, parent.CanonicalKey)
	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   log.ActionRetireParent,
		TargetID:   parentID,
		TargetType: log.TargetParentProduct,
	})
	return nil
}

// bind writes the entry and maintains the disjoint member sets.
func (s *MemoryStore) bind(key, parentID, provenance string) {
	if previous, ok := s.entries[key]; ok && previous.ParentID != parentID {
		if prevParent, exists := s.parents[previous.ParentID]; exists {
			prevParent.MemberKeys = removeKey(prevParent.MemberKeys, key)
		}
	}

	s.entries[key] = model.MappingEntry{
		Key:        key,
		ParentID:   parentID,
		Provenance: provenance,
		UpdatedAt:  s.now().UTC(),
	}

	parent := s.parents[parentID]
	if !containsKey(parent.MemberKeys, key) {
		parent.MemberKeys = append(parent.MemberKeys, key)
		sort.Strings(parent.MemberKeys)
	}
}

func (s *MemoryStore) createParentLocked(canonicalKey, name string) string {
	taken := func(id string) bool {
		_, exists := s.parents[id]
		return exists
	}
	parentID := StableParentID(canonicalKey, taken)
	if name == "" {
		name = canonicalKey
	}
	s.parents[parentID] = &model.ParentProduct{
		ParentID:     parentID,
		Name:         name,
		CanonicalKey: canonicalKey,
		CreatedAt:    s.now().UTC(),
	}
	s.byCanonicalKey[canonicalKey] = parentID
	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   log.ActionCreateParent,
		TargetID:   parentID,
		TargetType: log.TargetParentProduct,
		Data:       canonicalKey,
	})
	return parentID
}

func (s *MemoryStore) listParents(retired bool) []model.ParentProduct {
	var out []model.ParentProduct
	for _, parent := range s.parents {
		if parent.Retired != retired {
			continue
		}
		copied := *parent
		copied.MemberKeys = append([]string(nil), parent.MemberKeys...)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
