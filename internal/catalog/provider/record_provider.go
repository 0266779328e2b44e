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

package provider

import (
	"fmt"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/database/provider"
	errors2 "github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

// RecordProvider supplies the raw product rows a reconciliation run works
// on. The engine never reaches into source tables itself; a provider is
// passed in explicitly.
type RecordProvider interface {
	FetchRecords() ([]model.RawProductRecord, error)
}

// AssignmentWriter stamps resolved parent identifiers back onto source
// rows for downstream exports.
type AssignmentWriter interface {
	WriteAssignments(assignments []model.Assignment) error
}

// SQLRecordProvider reads raw product rows from the configured source
// price tables.
type SQLRecordProvider struct {
	tables []string
}

// NewSQLRecordProvider creates a provider over the standard source tables.
func NewSQLRecordProvider() *SQLRecordProvider {
	return &SQLRecordProvider{tables: constants.SourceTables}
}

// FetchRecords reads every row of every source table. Tables are visited
// in a fixed order so downstream processing sees a deterministic sequence.
func (p *SQLRecordProvider) FetchRecords() ([]model.RawProductRecord, error) {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	var records []model.RawProductRecord
	for _, table := range p.tables {
		query := fmt.Sprintf(`
			SELECT id, product_name, price, stock, weight
			FROM %s
			ORDER BY id;`, table)

		results, err := dbClient.ExecuteQuery(query)
		if err != nil {
			errorMsg := fmt.Sprintf("Failed to fetch source records from table: %s", table)
			logger.Debug(errorMsg, log.Error(err))
			return nil, errors2.NewServerError(errors2.ErrorMessage{
				Code:        errors2.FETCH_SOURCE_RECORDS.Code,
				Message:     errors2.FETCH_SOURCE_RECORDS.Message,
				Description: errorMsg,
			}, err)
		}

		for _, row := range results {
			records = append(records, scanRecordRow(table, row))
		}
		logger.Debug("Fetched source records",
			log.String("table", table), log.Int("count", len(results)))
	}
	return records, nil
}

// WriteAssignments stamps parent_product_id and parent_product_name onto
// the source rows named by the assignment list.
func (p *SQLRecordProvider) WriteAssignments(assignments []model.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	dbClient, err := provider.NewDBProvider().GetDBClient()
	logger := log.GetLogger()
	if err != nil {
		return errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	for _, assignment := range assignments {
		query := fmt.Sprintf(`
			UPDATE %s
			SET parent_product_id = $1, parent_product_name = $2
			WHERE id = $3;`, assignment.Source)

		err := dbClient.ExecuteStatement(query,
			assignment.ParentID, assignment.ParentName, assignment.SourceID)
		if err != nil {
			errorMsg := fmt.Sprintf("Failed to write parent assignment for record: %s/%s",
				assignment.Source, assignment.SourceID)
			logger.Debug(errorMsg, log.Error(err))
			return errors2.NewServerError(errors2.ErrorMessage{
				Code:        errors2.WRITE_ASSIGNMENTS.Code,
				Message:     errors2.WRITE_ASSIGNMENTS.Message,
				Description: errorMsg,
			}, err)
		}
	}

	logger.Info("Parent assignments written", log.Int("count", len(assignments)))
	return nil
}

func scanRecordRow(table string, row map[string]interface{}) model.RawProductRecord {
	record := model.RawProductRecord{
		Source:   table,
		SourceID: toString(row["id"]),
		RawName:  toString(row["product_name"]),
	}
	if v, ok := toFloat(row["price"]); ok {
		record.Price = &v
	}
	if v, ok := toInt(row["stock"]); ok {
		record.Stock = &v
	}
	if v, ok := toFloat(row["weight"]); ok {
		record.Weight = &v
	}
	return record
}

func toString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}

func toInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case int64:
		return int(value), true
	case int:
		return value, true
	case float64:
		return int(value), true
	default:
		return 0, false
	}
}
