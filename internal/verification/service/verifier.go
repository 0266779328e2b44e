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

	catalogModel "github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/mapping/store"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/log"
	"github.com/wso2/product-master-data-service/internal/verification/model"
)

// Verify runs the consistency checks over a mapping store and reports what
// it finds. The check is advisory: it reads, it never writes. A nil
// baseline skips the stability check.
func Verify(mappingStore store.MappingStore, baseline *model.BaselineSnapshot) (*model.VerificationReport, error) {
	report := &model.VerificationReport{}

	entries, err := mappingStore.List()
	if err != nil {
		return nil, err
	}
	parents, err := mappingStore.Parents()
	if err != nil {
		return nil, err
	}
	retired, err := mappingStore.RetiredParents()
	if err != nil {
		return nil, err
	}

	report.CheckedEntries = len(entries)
	report.CheckedParents = len(parents)

	active := make(map[string]bool, len(parents))
	for _, parent := range parents {
		active[parent.ParentID] = true
	}
	tombstones := make(map[string]bool, len(retired))
	for _, parent := range retired {
		tombstones[parent.ParentID] = true
	}

	// Every key must be bound to exactly one active parent.
	for _, entry := range entries {
		if !active[entry.ParentID] {
			report.OrphanKeys = append(report.OrphanKeys, entry.Key)
		}
	}

	// No key may sit in two member sets, and no active parent may be
	// empty. Empty tombstones are expected; empty active parents are not.
	seen := make(map[string]string, len(entries))
	for _, parent := range parents {
		if len(parent.MemberKeys) == 0 {
			report.EmptyParents = append(report.EmptyParents, parent.ParentID)
		}
		for _, key := range parent.MemberKeys {
			if _, dup := seen[key]; dup {
				report.DuplicateBindings = append(report.DuplicateBindings, key)
				continue
			}
			seen[key] = parent.ParentID
		}
	}
	sort.Strings(report.OrphanKeys)
	sort.Strings(report.DuplicateBindings)
	sort.Strings(report.EmptyParents)

	if baseline != nil {
		checkStability(baseline, entries, tombstones, report)
	}

	logger := log.GetLogger()
	if report.Clean() {
		logger.Info("Consistency check passed",
			log.Int("entries", report.CheckedEntries),
			log.Int("parents", report.CheckedParents))
	} else {
		logger.Warn("Consistency check flagged violations",
			log.Int("orphanKeys", len(report.OrphanKeys)),
			log.Int("duplicateBindings", len(report.DuplicateBindings)),
			log.Int("emptyParents", len(report.EmptyParents)),
			log.Int("brokenStability", len(report.BrokenStability)))
	}
	return report, nil
}

// checkStability compares baseline membership against current bindings.
// A baseline parent whose member keys still map to its identifier above
// the overlap threshold is considered the same logical cluster. A retired
// baseline identifier is an operator-sanctioned change and is skipped.
func checkStability(baseline *model.BaselineSnapshot, entries []catalogModel.MappingEntry, tombstones map[string]bool, report *model.VerificationReport) {
	current := make(map[string]string, len(entries))
	for _, entry := range entries {
		current[entry.Key] = entry.ParentID
	}

	for _, past := range baseline.Parents {
		if len(past.MemberKeys) == 0 {
			continue
		}
		if tombstones[past.ParentID] {
			continue
		}

		retained := 0
		for _, key := range past.MemberKeys {
			if current[key] == past.ParentID {
				retained++
			}
		}
		overlap := float64(retained) / float64(len(past.MemberKeys))
		if overlap > constants.StabilityOverlapThreshold {
			continue
		}

		report.BrokenStability = append(report.BrokenStability, model.StabilityViolation{
			ParentID: past.ParentID,
			Name:     past.Name,
			Overlap:  overlap,
			Reason: fmt.Sprintf("only %d of %d baseline member keys still resolve to this identifier",
				retained, len(past.MemberKeys)),
		})
	}

	sort.Slice(report.BrokenStability, func(i, j int) bool {
		return report.BrokenStability[i].ParentID < report.BrokenStability[j].ParentID
	})
}

// Snapshot captures the current active parent membership as a baseline for
// future stability checks.
func Snapshot(mappingStore store.MappingStore, version string) (*model.BaselineSnapshot, error) {
	parents, err := mappingStore.Parents()
	if err != nil {
		return nil, err
	}

	snapshot := &model.BaselineSnapshot{Version: version}
	for _, parent := range parents {
		snapshot.Parents = append(snapshot.Parents, model.BaselineParent{
			ParentID:   parent.ParentID,
			Name:       parent.Name,
			MemberKeys: append([]string(nil), parent.MemberKeys...),
		})
	}
	sort.Slice(snapshot.Parents, func(i, j int) bool {
		return snapshot.Parents[i].ParentID < snapshot.Parents[j].ParentID
	})
	return snapshot, nil
}
