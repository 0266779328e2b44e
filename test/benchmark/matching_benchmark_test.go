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

package benchmark

import (
	"fmt"
	"testing"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/matching"
	"github.com/wso2/product-master-data-service/internal/normalization"
)

var productNames = []string{
	"Red Apple 1kg", "red apple (1kg)", "Green Apple 1kg", "Tomato",
	"Tomatoes", "Cherry Tomato 500g", "Cucumber", "Potato 2kg",
	"Sweet Potato", "Red Onion 1kg", "White Onion", "Carrot 1kg",
	"Banana", "Mango 1kg", "Avocado Hass", "Fresh Milk 1l",
	"Whole Milk 1lt", "Yogurt 500ml", "Butter 250g", "Eggs 30pcs",
}

func syntheticRecords(n int) []model.KeyedRecord {
	records := make([]model.KeyedRecord, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s batch %d", productNames[i%len(productNames)], i/len(productNames))
		record := model.RawProductRecord{
			Source:   "farm_prices",
			SourceID: fmt.Sprintf("%d", i),
			RawName:  name,
		}
		records = append(records, model.KeyedRecord{
			Record: record,
			Key:    normalization.Normalize(name),
		})
	}
	return records
}

func BenchmarkNormalize(b *testing.B) {
	for i := 0; i < b.N; i++ {
		normalization.Normalize(productNames[i%len(productNames)])
	}
}

func benchmarkProposeClusters(b *testing.B, size, workers int) {
	records := syntheticRecords(size)
	opts := matching.Options{JaccardThreshold: 0.6, MaxEditDistance: 2, Workers: workers}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		matching.ProposeClusters(records, opts)
	}
}

func BenchmarkProposeClusters_200Records(b *testing.B) {
	benchmarkProposeClusters(b, 200, 4)
}

func BenchmarkProposeClusters_1000Records(b *testing.B) {
	benchmarkProposeClusters(b, 1000, 4)
}

func BenchmarkProposeClusters_1000RecordsSingleWorker(b *testing.B) {
	benchmarkProposeClusters(b, 1000, 1)
}
