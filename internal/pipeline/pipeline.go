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

// Package pipeline runs one reconciliation batch end to end: normalize the
// raw records, cluster them, merge the proposals into the mapping store,
// apply the operator configuration, verify, and publish the catalog.
package pipeline

import (
	"context"
	"sort"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/catalog/provider"
	dmModel "github.com/wso2/product-master-data-service/internal/dynamic_mapping/model"
	dmService "github.com/wso2/product-master-data-service/internal/dynamic_mapping/service"
	"github.com/wso2/product-master-data-service/internal/mapping/store"
	"github.com/wso2/product-master-data-service/internal/matching"
	"github.com/wso2/product-master-data-service/internal/normalization"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/database/lock"
	errors2 "github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
	verModel "github.com/wso2/product-master-data-service/internal/verification/model"
	verService "github.com/wso2/product-master-data-service/internal/verification/service"
	verStore "github.com/wso2/product-master-data-service/internal/verification/store"
)

// Pipeline wires the reconciliation stages over injected collaborators.
// All data access goes through the provided interfaces; the stages
// themselves work on materialized in-memory record sets.
type Pipeline struct {
	records      provider.RecordProvider
	mappingStore store.MappingStore
	baselines    verStore.BaselineStore
	runLock      lock.DistributedLock
	matcher      matching.Options
}

// Result is the published output of one run.
type Result struct {
	// Catalog is the master catalog, ordered by parent name.
	Catalog []model.CatalogEntry
	// Assignments name the parent for every resolved source row, for
	// writeback by an export collaborator.
	Assignments []model.Assignment
	// Unassigned lists records whose key carries no mapping after the
	// run, for manual review.
	Unassigned []model.RawProductRecord
	// ManualReview lists records that normalized to an empty key.
	ManualReview []model.RawProductRecord

	RecordCount int
	Apply       *dmModel.ApplyResult
	Report      *verModel.VerificationReport
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithLock guards the run with a distributed lock. Without one the caller
// is responsible for single-writer access.
func WithLock(l lock.DistributedLock) Option {
	return func(p *Pipeline) { p.runLock = l }
}

// WithBaselines enables the stability check and snapshot publication.
func WithBaselines(s verStore.BaselineStore) Option {
	return func(p *Pipeline) { p.baselines = s }
}

// WithMatcherOptions overrides the matcher thresholds.
func WithMatcherOptions(opts matching.Options) Option {
	return func(p *Pipeline) { p.matcher = opts }
}

// New creates a pipeline over a record provider and a mapping store.
func New(records provider.RecordProvider, mappingStore store.MappingStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		records:      records,
		mappingStore: mappingStore,
		runLock:      lock.NewNoopLock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one reconciliation batch. A non-nil configuration is
// applied after the matcher proposals are merged, so overrides always land
// on top of auto entries. The run takes the pipeline lock for its full
// duration; a second concurrent run is rejected, not serialized.
func (p *Pipeline) Run(ctx context.Context, cfg *dmModel.MappingConfiguration) (*Result, error) {
	acquired, err := p.runLock.Acquire(constants.PipelineLockKey)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, errors2.NewClientError(errors2.PIPELINE_LOCKED)
	}
	defer func() {
		if err := p.runLock.Release(constants.PipelineLockKey); err != nil {
			log.GetLogger().Warn("Failed to release pipeline lock", log.Error(err))
		}
	}()

	logger := log.GetLogger()

	records, err := p.records.FetchRecords()
	if err != nil {
		return nil, err
	}
	result := &Result{RecordCount: len(records)}
	logger.Info("Reconciliation run started", log.Int("records", len(records)))

	keyed := make([]model.KeyedRecord, 0, len(records))
	for _, record := range records {
		keyed = append(keyed, model.KeyedRecord{
			Record: record,
			Key:    normalization.Normalize(record.RawName),
		})
	}

	proposal := matching.ProposeClusters(keyed, p.matcher)
	result.ManualReview = proposal.ManualReview

	if err := p.mergeProposals(keyed, proposal); err != nil {
		return nil, err
	}

	if cfg != nil {
		applied, err := dmService.Apply(cfg, p.mappingStore)
		if err != nil {
			return nil, err
		}
		result.Apply = &applied
	}

	baseline, err := p.latestBaseline(ctx)
	if err != nil {
		return nil, err
	}
	report, err := verService.Verify(p.mappingStore, baseline)
	if err != nil {
		return nil, err
	}
	result.Report = report

	if err := p.publish(ctx, keyed, result); err != nil {
		return nil, err
	}

	logger.Info("Reconciliation run finished",
		log.Int("catalogEntries", len(result.Catalog)),
		log.Int("unassigned", len(result.Unassigned)),
		log.Int("manualReview", len(result.ManualReview)))
	return result, nil
}

// mergeProposals upserts the matcher output into the mapping store. Keys
// are visited in sorted order so identifier assignment is reproducible,
// and each cluster parent carries the display name of its founding
// record.
func (p *Pipeline) mergeProposals(keyed []model.KeyedRecord, proposal matching.Proposal) error {
	displayName := make(map[string]string, len(keyed))
	for _, kr := range keyed {
		if kr.Key == "" {
			continue
		}
		if _, ok := displayName[kr.Key]; !ok {
			displayName[kr.Key] = kr.Record.RawName
		}
	}

	keys := make([]string, 0, len(proposal.Clusters))
	for key := range proposal.Clusters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parentKey := proposal.Clusters[key]
		if err := p.mappingStore.UpsertAuto(key, parentKey, displayName[parentKey]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) latestBaseline(ctx context.Context) (*verModel.BaselineSnapshot, error) {
	if p.baselines == nil {
		return nil, nil
	}
	return p.baselines.Latest(ctx)
}

// publish materializes the catalog, the per-source assignments, and the
// unassigned report, then records the run as the new baseline.
func (p *Pipeline) publish(ctx context.Context, keyed []model.KeyedRecord, result *Result) error {
	parents, err := p.mappingStore.Parents()
	if err != nil {
		return err
	}

	recordsByKey := make(map[string][]model.KeyedRecord, len(keyed))
	for _, kr := range keyed {
		if kr.Key == "" {
			continue
		}
		recordsByKey[kr.Key] = append(recordsByKey[kr.Key], kr)
	}

	assigned := make(map[string]bool, len(keyed))
	for _, parent := range parents {
		entry := model.CatalogEntry{
			ParentID:   parent.ParentID,
			ParentName: parent.Name,
			MemberKeys: parent.MemberKeys,
			CreatedAt:  parent.CreatedAt,
		}
		for _, key := range parent.MemberKeys {
			for _, kr := range recordsByKey[key] {
				entry.ChildRecordIDs = append(entry.ChildRecordIDs, kr.Record.RecordID())
				entry.ChildNames = append(entry.ChildNames, kr.Record.RawName)
				assigned[kr.Record.RecordID()] = true
				result.Assignments = append(result.Assignments, model.Assignment{
					Source:     kr.Record.Source,
					SourceID:   kr.Record.SourceID,
					ParentID:   parent.ParentID,
					ParentName: parent.Name,
				})
			}
		}
		result.Catalog = append(result.Catalog, entry)
	}
	sort.Slice(result.Catalog, func(i, j int) bool {
		if result.Catalog[i].ParentName != result.Catalog[j].ParentName {
			return result.Catalog[i].ParentName < result.Catalog[j].ParentName
		}
		return result.Catalog[i].ParentID < result.Catalog[j].ParentID
	})
	sort.Slice(result.Assignments, func(i, j int) bool {
		if result.Assignments[i].Source != result.Assignments[j].Source {
			return result.Assignments[i].Source < result.Assignments[j].Source
		}
		return result.Assignments[i].SourceID < result.Assignments[j].SourceID
	})

	for _, kr := range keyed {
		if kr.Key == "" || assigned[kr.Record.RecordID()] {
			continue
		}
		result.Unassigned = append(result.Unassigned, kr.Record)
	}

	if p.baselines != nil {
		snapshot, err := verService.Snapshot(p.mappingStore, normalization.Version)
		if err != nil {
			return err
		}
		if err := p.baselines.Save(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}
