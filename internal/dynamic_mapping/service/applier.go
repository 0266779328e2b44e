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
	"sort"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	dmModel "github.com/wso2/product-master-data-service/internal/dynamic_mapping/model"
	"github.com/wso2/product-master-data-service/internal/mapping/store"
	"github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

// Apply reconciles a validated mapping configuration against the mapping
// store. Parent-metadata edits run first (renames, merges, splits), then
// key bindings. Entries fail closed: an entry that cannot be applied is
// rejected and reported while the rest of the configuration still applies.
// Applying the same configuration twice yields the same store state as
// applying it once.
func Apply(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore) (dmModel.ApplyResult, error) {
	result := dmModel.ApplyResult{}

	// Split coverage is checked before anything mutates, so a refused
	// split aborts the call with the store untouched.
	if err := checkSplitCoverage(cfg, mappingStore); err != nil {
		return result, err
	}

	if err := applyRenames(cfg, mappingStore, &result); err != nil {
		return result, err
	}
	if err := applyMerges(cfg, mappingStore, &result); err != nil {
		return result, err
	}
	if err := applySplits(cfg, mappingStore, &result); err != nil {
		return result, err
	}
	if err := applyBindings(cfg, mappingStore, &result); err != nil {
		return result, err
	}

	log.GetLogger().Info("Mapping configuration applied",
		log.String("version", cfg.Version),
		log.Int("applied", result.AppliedCount),
		log.Int("conflicts", result.ConflictCount))
	return result, nil
}

func reject(result *dmModel.ApplyResult, section, target, reason string) {
	result.ConflictCount++
	result.Rejected = append(result.Rejected, dmModel.RejectedEntry{
		Section: section,
		Target:  target,
		Reason:  reason,
	})
	log.GetLogger().Warn("Mapping configuration entry rejected",
		log.String("section", section),
		log.String("target", target),
		log.String("reason", reason))
}

// checkSplitCoverage refuses any split whose parts do not exactly cover the
// member set the identifier will hold when the split runs. Merges execute
// before splits, so coverage is checked against the projected post-merge
// membership: a document that folds a source into a parent and also splits
// that parent must list the folded-in keys too. Splits of already-retired
// parents are exempt: they are treated as reapplied directives.
func checkSplitCoverage(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore) error {
	if len(cfg.Splits) == 0 {
		return nil
	}

	projected, err := projectedMembers(cfg, mappingStore)
	if err != nil {
		return err
	}

	for _, parentID := range sortedSplitIDs(cfg) {
		parent, err := mappingStore.GetParent(parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return errors.NewConfigurationError(
				fmt.Sprintf("split references unknown parent %s", parentID))
		}
		if parent.Retired {
			continue
		}
		members, active := projected[parentID]
		if !active {
			// A merge in this document retires the parent before the
			// split runs; the split degenerates to a reapplied no-op.
			continue
		}

		covered := make(map[string]bool)
		for _, part := range cfg.Splits[parentID] {
			for _, key := range part.Keys {
				if !members[key] {
					return errors.NewConfigurationError(
						fmt.Sprintf("split of %s lists key %q which is not a member", parentID, key))
				}
				covered[key] = true
			}
		}
		if len(covered) != len(members) {
			return errors.NewConfigurationError(
				fmt.Sprintf("split of %s covers %d of %d member keys; a split must cover all prior members",
					parentID, len(covered), len(members)))
		}
	}
	return nil
}

// projectedMembers replays the document's merges over the current active
// member sets, mirroring applyMerges: a merge folds the source's keys into
// the target and retires the source. The result is the membership the store
// will hold when the splits execute.
func projectedMembers(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore) (map[string]map[string]bool, error) {
	parents, err := mappingStore.Parents()
	if err != nil {
		return nil, err
	}

	members := make(map[string]map[string]bool, len(parents))
	for _, parent := range parents {
		set := make(map[string]bool, len(parent.MemberKeys))
		for _, key := range parent.MemberKeys {
			set[key] = true
		}
		members[parent.ParentID] = set
	}

	for _, merge := range cfg.Merges {
		source, sourceActive := members[merge.Source]
		target, targetActive := members[merge.Target]
		if !sourceActive || !targetActive {
			// applyMerges rejects or no-ops these entries.
			continue
		}
		for key := range source {
			target[key] = true
		}
		delete(members, merge.Source)
	}
	return members, nil
}

func applyRenames(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore, result *dmModel.ApplyResult) error {
	for _, parentID := range sortedRenameIDs(cfg) {
		name := cfg.Renames[parentID]
		err := mappingStore.RenameParent(parentID, name)
		switch err.(type) {
		case nil:
			result.AppliedCount++
		case *store.ErrUnknownParent:
			reject(result, "renames", parentID, "parent does not exist")
		default:
			return err
		}
	}
	return nil
}

func applyMerges(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore, result *dmModel.ApplyResult) error {
	for _, merge := range cfg.Merges {
		target, err := mappingStore.GetParent(merge.Target)
		if err != nil {
			return err
		}
		source, err := mappingStore.GetParent(merge.Source)
		if err != nil {
			return err
		}

		if target == nil || target.Retired {
			reject(result, "merges", merge.Target, "merge target does not exist or is retired")
			continue
		}
		if source == nil {
			reject(result, "merges", merge.Source, "merge source does not exist")
			continue
		}
		if source.Retired {
			// Reapplied directive; the fold already happened.
			result.AppliedCount++
			continue
		}

		for _, key := range source.MemberKeys {
			if err := mappingStore.UpsertOverride(key, merge.Target); err != nil {
				return err
			}
		}
		if err := mappingStore.RetireParent(merge.Source); err != nil {
			return err
		}
		result.AppliedCount++
		log.GetLogger().Audit(log.AuditEvent{
			ActionID:   log.ActionMergeParents,
			TargetID:   merge.Target,
			TargetType: log.TargetParentProduct,
			Data:       merge.Source,
		})
	}
	return nil
}

func applySplits(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore, result *dmModel.ApplyResult) error {
	for _, parentID := range sortedSplitIDs(cfg) {
		parent, err := mappingStore.GetParent(parentID)
		if err != nil {
			return err
		}
		if parent.Retired {
			// Reapplied directive; the partition already happened.
			result.AppliedCount++
			continue
		}

		for _, part := range cfg.Splits[parentID] {
			keys := append([]string(nil), part.Keys...)
			sort.Strings(keys)
			canonicalKey := keys[0]

			partID, err := resolvePartParent(mappingStore, parentID, canonicalKey, part.Name)
			if err != nil {
				return err
			}
			for _, key := range keys {
				if err := mappingStore.UpsertOverride(key, partID); err != nil {
					return err
				}
			}
		}

		if err := mappingStore.RetireParent(parentID); err != nil {
			return err
		}
		result.AppliedCount++
		log.GetLogger().Audit(log.AuditEvent{
			ActionID:   log.ActionSplitParent,
			TargetID:   parentID,
			TargetType: log.TargetParentProduct,
			Data:       len(cfg.Splits[parentID]),
		})
	}
	return nil
}

func applyBindings(cfg *dmModel.MappingConfiguration, mappingStore store.MappingStore, result *dmModel.ApplyResult) error {
	// First occurrence of a key wins inside one document; later bindings of
	// the same key to a different parent are conflicts.
	boundTo := make(map[string]string)

	for _, binding := range cfg.Bindings {
		if previous, seen := boundTo[binding.Key]; seen {
			if previous == binding.ParentID {
				result.AppliedCount++
				continue
			}
			reject(result, "bindings", binding.Key,
				fmt.Sprintf("key already bound to %s in this configuration", previous))
			continue
		}

		err := mappingStore.UpsertOverride(binding.Key, binding.ParentID)
		switch err.(type) {
		case nil:
			boundTo[binding.Key] = binding.ParentID
			result.AppliedCount++
		case *store.ErrRetiredParent:
			reject(result, "bindings", binding.Key,
				fmt.Sprintf("parent %s is retired", binding.ParentID))
		default:
			return err
		}
	}
	return nil
}

// resolvePartParent finds or creates the parent product for one split part.
// A part whose canonical key already founded an active parent reuses that
// parent, except for the parent being split itself, which is about to be
// retired.
func resolvePartParent(mappingStore store.MappingStore, splitParentID, canonicalKey, name string) (string, error) {
	entry, err := mappingStore.Get(canonicalKey)
	if err != nil {
		return "", err
	}
	if entry != nil && entry.ParentID != splitParentID {
		holder, err := mappingStore.GetParent(entry.ParentID)
		if err != nil {
			return "", err
		}
		if holder != nil && !holder.Retired && holder.CanonicalKey == canonicalKey {
			return holder.ParentID, nil
		}
	}

	taken := func(id string) bool {
		parent, err := mappingStore.GetParent(id)
		return err == nil && parent != nil
	}
	partID := store.StableParentID(canonicalKey, taken)
	if name == "" {
		name = canonicalKey
	}
	err = mappingStore.CreateParent(model.ParentProduct{
		ParentID:     partID,
		Name:         name,
		CanonicalKey: canonicalKey,
	})
	if err != nil {
		return "", err
	}
	return partID, nil
}

func sortedSplitIDs(cfg *dmModel.MappingConfiguration) []string {
	ids := make([]string, 0, len(cfg.Splits))
	for id := range cfg.Splits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedRenameIDs(cfg *dmModel.MappingConfiguration) []string {
	ids := make([]string, 0, len(cfg.Renames))
	for id := range cfg.Renames {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
