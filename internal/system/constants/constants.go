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

package constants

// Provenance values define where a mapping entry originated.
const (
	ProvenanceAuto     = "auto"     // Proposed by the matcher.
	ProvenanceOverride = "override" // Applied from the mapping configuration.
)

// AllowedProvenanceValues defines the valid set of provenance tags.
var AllowedProvenanceValues = map[string]bool{
	ProvenanceAuto:     true,
	ProvenanceOverride: true,
}

// Source tables the record provider reads raw product rows from.
var SourceTables = []string{
	"farm_prices",
	"supermarket_prices",
	"distribution_center_prices",
	"local_shop_prices",
	"ecommerce_prices",
	"sunday_market_prices",
}

// Datasource driver types.
const (
	DataSourceTypePostgres = "postgres"
	DataSourceTypeSQLite   = "sqlite"
)

// Baseline store types.
const (
	BaselineStoreMongo    = "mongo"
	BaselineStoreDatabase = "database"
)

// Default MongoDB locations for verifier baselines.
const (
	BaselineDatabase   = "product_master"
	BaselineCollection = "baseline_snapshots"
)

// PipelineLockKey guards full pipeline invocations against the same store.
const PipelineLockKey = "product-master-reconciliation"

// StabilityOverlapThreshold is the minimum member-key overlap ratio for a
// baseline parent to be considered the same logical cluster.
const StabilityOverlapThreshold = 0.5
