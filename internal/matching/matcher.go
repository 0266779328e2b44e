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

package matching

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/normalization"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

// Options pin the similarity thresholds for one matcher run.
type Options struct {
	JaccardThreshold float64
	MaxEditDistance  int
	Workers          int
}

// Proposal is the matcher output: every non-empty normalized key bound to
// its proposed parent key, plus the records that normalized to an empty key
// and need manual review.
type Proposal struct {
	Clusters     map[string]string
	ManualReview []model.RawProductRecord
}

type keyPair struct {
	a, b string
}

// ProposeClusters groups records whose normalized keys are within the edit
// distance bound or share enough token overlap, using union-find
// clustering. The lowest-sorted key in each final cluster becomes the
// cluster's proposed parent key, so the same input set always yields the
// same clustering regardless of processing order.
func ProposeClusters(records []model.KeyedRecord, opts Options) Proposal {
	proposal := Proposal{Clusters: make(map[string]string)}

	// Collect unique keys and a representative raw name per key. Two raw
	// names can share a key but tokenize differently, so the representative
	// is the lexicographically smallest raw name rather than the first one
	// seen; input order cannot leak into the result.
	rawByKey := make(map[string]string)
	for _, kr := range records {
		if kr.Key == "" {
			// A record that normalizes to nothing cannot be matched
			// against anything. Flag it instead of dropping it.
			proposal.ManualReview = append(proposal.ManualReview, kr.Record)
			continue
		}
		if existing, seen := rawByKey[kr.Key]; !seen || kr.Record.RawName < existing {
			rawByKey[kr.Key] = kr.Record.RawName
		}
	}

	tokensByKey := make(map[string][]string, len(rawByKey))
	for key, rawName := range rawByKey {
		tokensByKey[key] = normalization.Tokens(rawName)
	}

	keys := make([]string, 0, len(tokensByKey))
	for k := range tokensByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	matched := similarPairs(keys, tokensByKey, opts)

	// Sort pairs before union so the union-find sees a total order and the
	// worker fan-out above cannot influence the outcome.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].a != matched[j].a {
			return matched[i].a < matched[j].a
		}
		return matched[i].b < matched[j].b
	})

	uf := newUnionFind(keys)
	for _, p := range matched {
		uf.union(p.a, p.b)
	}

	for _, members := range uf.clusters() {
		sort.Strings(members)
		parentKey := members[0]
		for _, member := range members {
			proposal.Clusters[member] = parentKey
		}
	}

	if len(proposal.ManualReview) > 0 {
		log.GetLogger().Warn(fmt.Sprintf("%d record(s) normalized to an empty key and were flagged for manual review",
			len(proposal.ManualReview)))
	}
	return proposal
}

// similarPairs computes the pairwise similarity step. It is read-only and
// embarrassingly parallel, so it fans out across a bounded worker pool; the
// caller sorts the combined result before clustering.
func similarPairs(keys []string, tokensByKey map[string][]string, opts Options) []keyPair {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	indexes := make(chan int)
	results := make(chan []keyPair, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local []keyPair
			for i := range indexes {
				for j := i + 1; j < len(keys); j++ {
					if similar(keys[i], keys[j], tokensByKey, opts) {
						local = append(local, keyPair{a: keys[i], b: keys[j]})
					}
				}
			}
			results <- local
		}()
	}

	go func() {
		for i := range keys {
			indexes <- i
		}
		close(indexes)
		wg.Wait()
		close(results)
	}()

	var matched []keyPair
	for local := range results {
		matched = append(matched, local...)
	}
	return matched
}

func similar(a, b string, tokensByKey map[string][]string, opts Options) bool {
	if opts.MaxEditDistance > 0 && editDistance(a, b, opts.MaxEditDistance) <= opts.MaxEditDistance {
		return true
	}
	if opts.JaccardThreshold <= 0 {
		return false
	}
	return jaccardSimilarity(tokensByKey[a], tokensByKey[b]) >= opts.JaccardThreshold
}
