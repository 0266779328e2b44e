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
	"time"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/system/cache"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/database/client"
	"github.com/wso2/product-master-data-service/internal/system/database/provider"
	errors2 "github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

// SQLStore is the database-backed MappingStore. Parent membership is
// derived from the mapping entries table, so the disjoint member set
// invariant holds by construction.
type SQLStore struct {
	parentCache *cache.Cache
}

// NewSQLStore creates a MappingStore backed by the configured datasource.
func NewSQLStore() *SQLStore {
	return &SQLStore{
		parentCache: cache.NewCache(30 * time.Second),
	}
}

func scanEntryRow(row map[string]interface{}) model.MappingEntry {
	entry := model.MappingEntry{
		Key:        asString(row["normalized_key"]),
		ParentID:   asString(row["parent_id"]),
		Provenance: asString(row["provenance"]),
	}
	if ts, ok := row["updated_at"].(time.Time); ok {
		entry.UpdatedAt = ts
	}
	return entry
}

func scanParentRow(row map[string]interface{}) model.ParentProduct {
	parent := model.ParentProduct{
		ParentID:     asString(row["parent_id"]),
		Name:         asString(row["parent_name"]),
		CanonicalKey: asString(row["canonical_key"]),
		Retired:      asBool(row["retired"]),
	}
	if ts, ok := row["created_at"].(time.Time); ok {
		parent.CreatedAt = ts
	}
	return parent
}

// Get returns the mapping entry for a key, or nil when absent.
func (s *SQLStore) Get(key string) (*model.MappingEntry, error) {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		SELECT normalized_key, parent_id, provenance, updated_at
		FROM mapping_entries
		WHERE normalized_key = $1;`

	results, err := dbClient.ExecuteQuery(query, key)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to fetch mapping entry for key: %s", key)
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.GET_MAPPING_ENTRY.Code,
			Message:     errors2.GET_MAPPING_ENTRY.Message,
			Description: errorMsg,
		}, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	entry := scanEntryRow(results[0])
	return &entry, nil
}

// UpsertAuto records a matcher proposal for a key.
func (s *SQLStore) UpsertAuto(key, proposedParentKey, parentName string) error {
	existing, err := s.Get(key)
	if err != nil {
		return err
	}
	if existing != nil {
		// An assigned binding wins: overrides unconditionally, and prior
		// auto bindings for identifier stability across runs.
		return nil
	}

	parent, err := s.parentByCanonicalKey(proposedParentKey)
	if err != nil {
		return err
	}

	var parentID string
	if parent != nil {
		parentID = parent.ParentID
	} else {
		proposedEntry, err := s.Get(proposedParentKey)
		if err != nil {
			return err
		}
		if proposedEntry != nil {
			holder, err := s.GetParent(proposedEntry.ParentID)
			if err != nil {
				return err
			}
			if holder != nil && !holder.Retired {
				parentID = proposedEntry.ParentID
			}
		}
		if parentID == "" {
			parentID, err = s.createParent(proposedParentKey, parentName)
			if err != nil {
				return err
			}
		}
	}

	return s.writeEntry(key, parentID, constants.ProvenanceAuto)
}

// UpsertOverride binds a key to a parent on behalf of the mapping
// configuration.
func (s *SQLStore) UpsertOverride(key, parentID string) error {
	parent, err := s.GetParent(parentID)
	if err != nil {
		return err
	}
	if parent != nil && parent.Retired {
		return &ErrRetiredParent{ParentID: parentID}
	}
	if parent == nil {
		err = s.CreateParent(model.ParentProduct{
			ParentID:     parentID,
			Name:         key,
			CanonicalKey: key,
		})
		if err != nil {
			return err
		}
	}

	return s.writeEntry(key, parentID, constants.ProvenanceOverride)
}

// List returns every mapping entry sorted by key.
func (s *SQLStore) List() ([]model.MappingEntry, error) {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		SELECT normalized_key, parent_id, provenance, updated_at
		FROM mapping_entries
		ORDER BY normalized_key;`

	results, err := dbClient.ExecuteQuery(query)
	if err != nil {
		errorMsg := "Failed to list mapping entries"
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.LIST_MAPPING_ENTRIES.Code,
			Message:     errors2.LIST_MAPPING_ENTRIES.Message,
			Description: errorMsg,
		}, err)
	}

	entries := make([]model.MappingEntry, 0, len(results))
	for _, row := range results {
		entries = append(entries, scanEntryRow(row))
	}
	return entries, nil
}

// Parents returns all active parent products sorted by name.
func (s *SQLStore) Parents() ([]model.ParentProduct, error) {
	return s.listParents(false)
}

// RetiredParents returns the tombstone set sorted by name.
func (s *SQLStore) RetiredParents() ([]model.ParentProduct, error) {
	return s.listParents(true)
}

// GetParent returns a parent product by identifier, or nil when absent.
func (s *SQLStore) GetParent(parentID string) (*model.ParentProduct, error) {
	if cached, found := s.parentCache.Get(parentID); found {
		parent := cached.(model.ParentProduct)
		return &parent, nil
	}

	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		SELECT parent_id, parent_name, canonical_key, retired, created_at
		FROM parent_products
		WHERE parent_id = $1;`

	results, err := dbClient.ExecuteQuery(query, parentID)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to fetch parent product with Id: %s", parentID)
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.GET_PARENT_PRODUCT.Code,
			Message:     errors2.GET_PARENT_PRODUCT.Message,
			Description: errorMsg,
		}, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	parent := scanParentRow(results[0])
	parent.MemberKeys, err = s.memberKeys(dbClient, parentID)
	if err != nil {
		return nil, err
	}
	s.parentCache.Set(parentID, parent)
	return &parent, nil
}

// CreateParent adds a parent product with a caller-chosen identifier.
func (s *SQLStore) CreateParent(parent model.ParentProduct) error {
	existing, err := s.GetParent(parent.ParentID)
	if err != nil {
		return err
	}
	if existing != nil {
		return &ErrParentExists{ParentID: parent.ParentID}
	}

	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	createdAt := parent.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO parent_products (parent_id, parent_name, canonical_key, retired, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (parent_id) DO NOTHING;`

	err = dbClient.ExecuteStatement(query, parent.ParentID, parent.Name, parent.CanonicalKey,
		parent.Retired, createdAt)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to insert parent product with Id: %s", parent.ParentID)
		logger.Debug(errorMsg, log.Error(err))
		return errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.ADD_PARENT_PRODUCT.Code,
			Message:     errors2.ADD_PARENT_PRODUCT.Message,
			Description: errorMsg,
		}, err)
	}

	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   log.ActionCreateParent,
		TargetID:   parent.ParentID,
		TargetType: log.TargetParentProduct,
		Data:       parent.CanonicalKey,
	})
	return nil
}

// RenameParent updates a parent product's display name.
func (s *SQLStore) RenameParent(parentID, name string) error {
	parent, err := s.GetParent(parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return &ErrUnknownParent{ParentID: parentID}
	}

	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `UPDATE parent_products SET parent_name = $1 WHERE parent_id = $2;`
	if err := dbClient.ExecuteStatement(query, name, parentID); err != nil {
		errorMsg := fmt.Sprintf("Failed to rename parent product with Id: %s", parentID)
		logger.Debug(errorMsg, log.Error(err))
		return errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.UPDATE_PARENT_PRODUCT.Code,
			Message:     errors2.UPDATE_PARENT_PRODUCT.Message,
			Description: errorMsg,
		}, err)
	}

	s.parentCache.Delete(parentID)
	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   log.ActionRenameParent,
		TargetID:   parentID,
		TargetType: log.TargetParentProduct,
		Data:       name,
	})
	return nil
}

// RetireParent marks a parent as a tombstone.
func (s *SQLStore) RetireParent(parentID string) error {
	parent, err := s.GetParent(parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return &ErrUnknownParent{ParentID: parentID}
	}
	if parent.Retired {
		return nil
	}

	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `UPDATE parent_products SET retired = TRUE WHERE parent_id = $1;`
	if err := dbClient.ExecuteStatement(query, parentID); err != nil {
		errorMsg := fmt.Sprintf("Failed to retire parent product with Id: %s", parentID)
		logger.Debug(errorMsg, log.Error(err))
		return errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.RETIRE_PARENT_PRODUCT.Code,
			Message:     errors2.RETIRE_PARENT_PRODUCT.Message,
			Description: errorMsg,
		}, err)
	}

	s.parentCache.Delete(parentID)
	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   log.ActionRetireParent,
		TargetID:   parentID,
		TargetType: log.TargetParentProduct,
	})
	return nil
}

func (s *SQLStore) parentByCanonicalKey(canonicalKey string) (*model.ParentProduct, error) {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		SELECT parent_id, parent_name, canonical_key, retired, created_at
		FROM parent_products
		WHERE canonical_key = $1 AND retired = FALSE;`

	results, err := dbClient.ExecuteQuery(query, canonicalKey)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to fetch parent product for canonical key: %s", canonicalKey)
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.GET_PARENT_PRODUCT.Code,
			Message:     errors2.GET_PARENT_PRODUCT.Message,
			Description: errorMsg,
		}, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	parent := scanParentRow(results[0])
	return &parent, nil
}

func (s *SQLStore) createParent(canonicalKey, name string) (string, error) {
	taken := func(id string) bool {
		parent, err := s.GetParent(id)
		return err == nil && parent != nil
	}
	parentID := StableParentID(canonicalKey, taken)
	if name == "" {
		name = canonicalKey
	}
	err := s.CreateParent(model.ParentProduct{
		ParentID:     parentID,
		Name:         name,
		CanonicalKey: canonicalKey,
	})
	if err != nil {
		return "", err
	}
	return parentID, nil
}

func (s *SQLStore) writeEntry(key, parentID, provenance string) error {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		INSERT INTO mapping_entries (normalized_key, parent_id, provenance, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (normalized_key) DO UPDATE
		SET parent_id = EXCLUDED.parent_id,
		    provenance = EXCLUDED.provenance,
		    updated_at = EXCLUDED.updated_at;`

	err = dbClient.ExecuteStatement(query, key, parentID, provenance, time.Now().UTC())
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to upsert mapping entry for key: %s", key)
		logger.Debug(errorMsg, log.Error(err))
		return errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.UPSERT_MAPPING_ENTRY.Code,
			Message:     errors2.UPSERT_MAPPING_ENTRY.Message,
			Description: errorMsg,
		}, err)
	}

	action := log.ActionUpsertAuto
	if provenance == constants.ProvenanceOverride {
		action = log.ActionUpsertOverride
	}
	s.parentCache.Clear()
	log.GetLogger().Audit(log.AuditEvent{
		ActionID:   action,
		TargetID:   key,
		TargetType: log.TargetMappingEntry,
		Data:       parentID,
	})
	return nil
}

func (s *SQLStore) listParents(retired bool) ([]model.ParentProduct, error) {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		SELECT parent_id, parent_name, canonical_key, retired, created_at
		FROM parent_products
		WHERE retired = $1
		ORDER BY parent_name;`

	results, err := dbClient.ExecuteQuery(query, retired)
	if err != nil {
		errorMsg := "Failed to list parent products"
		logger.Debug(errorMsg, log.Error(err))
		return nil, errors2.NewServerError(errors2.ErrorMessage{
			Code:        errors2.GET_PARENT_PRODUCT.Code,
			Message:     errors2.GET_PARENT_PRODUCT.Message,
			Description: errorMsg,
		}, err)
	}

	parents := make([]model.ParentProduct, 0, len(results))
	for _, row := range results {
		parent := scanParentRow(row)
		parent.MemberKeys, err = s.memberKeys(dbClient, parent.ParentID)
		if err != nil {
			return nil, err
		}
		parents = append(parents, parent)
	}
	return parents, nil
}

func (s *SQLStore) memberKeys(dbClient client.DBClientInterface, parentID string) ([]string, error) {

	query := `
		SELECT normalized_key
		FROM mapping_entries
		WHERE parent_id = $1
		ORDER BY normalized_key;`

	results, err := dbClient.ExecuteQuery(query, parentID)
	if err != nil {
		return nil, errors2.NewServerError(errors2.LIST_MAPPING_ENTRIES, err)
	}

	keys := make([]string, 0, len(results))
	for _, row := range results {
		keys = append(keys, asString(row["normalized_key"]))
	}
	return keys, nil
}

func asString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return ""
	}
}

func asBool(v interface{}) bool {
	switch value := v.(type) {
	case bool:
		return value
	case int64:
		return value != 0
	default:
		return false
	}
}
