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

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/product-master-data-service/internal/catalog/provider"
	"github.com/wso2/product-master-data-service/internal/mapping/store"
	"github.com/wso2/product-master-data-service/internal/matching"
	"github.com/wso2/product-master-data-service/internal/pipeline"
	"github.com/wso2/product-master-data-service/internal/system/database/lock"
	dbProvider "github.com/wso2/product-master-data-service/internal/system/database/provider"
	verStore "github.com/wso2/product-master-data-service/internal/verification/store"
)

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

func seedSourceRows(t *testing.T) {
	t.Helper()
	dbClient, err := dbProvider.NewDBProvider().GetDBClient()
	require.NoError(t, err)

	for _, table := range []string{"farm_prices", "supermarket_prices", "ecommerce_prices"} {
		require.NoError(t, dbClient.ExecuteStatement("TRUNCATE "+table+";"))
	}

	rows := []struct {
		table, id, name string
	}{
		{"farm_prices", "f1", "Red Apple 1kg"},
		{"supermarket_prices", "s1", "red apple (1kg)"},
		{"ecommerce_prices", "e1", "Green Apple 1kg"},
	}
	for _, row := range rows {
		require.NoError(t, dbClient.ExecuteStatement(
			"INSERT INTO "+row.table+" (id, product_name, price) VALUES ($1, $2, $3);",
			row.id, row.name, 9.99))
	}
}

func newTestPipeline() *pipeline.Pipeline {
	return pipeline.New(
		provider.NewSQLRecordProvider(),
		store.NewSQLStore(),
		pipeline.WithLock(lock.NewPostgresLock()),
		pipeline.WithBaselines(verStore.NewSQLBaselineStore()),
		pipeline.WithMatcherOptions(matching.Options{
			JaccardThreshold: 0.6,
			MaxEditDistance:  2,
			Workers:          2,
		}),
	)
}

func TestPipeline_EndToEnd(t *testing.T) {
	resetMappingTables(t)
	seedSourceRows(t)

	result, err := newTestPipeline().Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RecordCount)
	require.Len(t, result.Catalog, 2)
	assert.Equal(t, "Green Apple 1kg", result.Catalog[0].ParentName)
	assert.Equal(t, "Red Apple 1kg", result.Catalog[1].ParentName)
	assert.ElementsMatch(t,
		[]string{"farm_prices/f1", "supermarket_prices/s1"},
		result.Catalog[1].ChildRecordIDs)

	require.NotNil(t, result.Report)
	assert.True(t, result.Report.Clean())
	assert.Empty(t, result.Unassigned)
}

func TestPipeline_SecondRunIsStable(t *testing.T) {
	resetMappingTables(t)
	seedSourceRows(t)

	p := newTestPipeline()
	first, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	second, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, second.Catalog, len(first.Catalog))
	for i := range first.Catalog {
		assert.Equal(t, first.Catalog[i].ParentID, second.Catalog[i].ParentID)
		assert.Equal(t, first.Catalog[i].MemberKeys, second.Catalog[i].MemberKeys)
	}
	assert.Empty(t, second.Report.BrokenStability)
}

func TestPipeline_AssignmentWriteback(t *testing.T) {
	resetMappingTables(t)
	seedSourceRows(t)

	writer := provider.NewSQLRecordProvider()
	result, err := newTestPipeline().Run(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, writer.WriteAssignments(result.Assignments))

	dbClient, err := dbProvider.NewDBProvider().GetDBClient()
	require.NoError(t, err)
	rows, err := dbClient.ExecuteQuery(
		"SELECT parent_product_id, parent_product_name FROM farm_prices WHERE id = $1;", "f1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, asString(rows[0]["parent_product_id"]))
	assert.Equal(t, "Red Apple 1kg", asString(rows[0]["parent_product_name"]))
}
