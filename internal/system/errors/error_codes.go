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

package errors

const errorPrefix = "PMS-"

var (
	// Server error codes

	DB_CLIENT_INIT = ErrorMessage{
		Code:    errorPrefix + "15001",
		Message: "Error while initializing the database client.",
	}

	GET_MAPPING_ENTRY = ErrorMessage{
		Code:    errorPrefix + "15002",
		Message: "Error while fetching mapping entry.",
	}

	UPSERT_MAPPING_ENTRY = ErrorMessage{
		Code:    errorPrefix + "15003",
		Message: "Error while upserting mapping entry.",
	}

	LIST_MAPPING_ENTRIES = ErrorMessage{
		Code:    errorPrefix + "15004",
		Message: "Error while listing mapping entries.",
	}

	GET_PARENT_PRODUCT = ErrorMessage{
		Code:    errorPrefix + "15005",
		Message: "Error while fetching parent product.",
	}

	ADD_PARENT_PRODUCT = ErrorMessage{
		Code:    errorPrefix + "15006",
		Message: "Error while adding parent product.",
	}

	UPDATE_PARENT_PRODUCT = ErrorMessage{
		Code:    errorPrefix + "15007",
		Message: "Error while updating parent product.",
	}

	RETIRE_PARENT_PRODUCT = ErrorMessage{
		Code:    errorPrefix + "15008",
		Message: "Error while retiring parent product.",
	}

	FETCH_SOURCE_RECORDS = ErrorMessage{
		Code:    errorPrefix + "15009",
		Message: "Error while fetching raw product records.",
	}

	SAVE_BASELINE_SNAPSHOT = ErrorMessage{
		Code:    errorPrefix + "15010",
		Message: "Error while saving baseline snapshot.",
	}

	FETCH_BASELINE_SNAPSHOT = ErrorMessage{
		Code:    errorPrefix + "15011",
		Message: "Error while fetching baseline snapshot.",
	}

	LOCK_KEY_GEN = ErrorMessage{
		Code:    errorPrefix + "15012",
		Message: "Error while generating advisory lock key.",
	}

	LOCK_ACQUIRE = ErrorMessage{
		Code:    errorPrefix + "15013",
		Message: "Error while acquiring advisory lock.",
	}

	LOCK_RELEASE = ErrorMessage{
		Code:    errorPrefix + "15014",
		Message: "Error while releasing advisory lock.",
	}

	LOCK_RESULT_INVALID = ErrorMessage{
		Code:    errorPrefix + "15015",
		Message: "Advisory lock query returned an invalid result.",
	}

	WRITE_ASSIGNMENTS = ErrorMessage{
		Code:    errorPrefix + "15016",
		Message: "Error while writing parent assignments to source tables.",
	}

	// Client error codes

	CONFIGURATION_INVALID = ErrorMessage{
		Code:    errorPrefix + "11001",
		Message: "Mapping configuration document is invalid.",
	}

	PIPELINE_LOCKED = ErrorMessage{
		Code:    errorPrefix + "11002",
		Message: "Another reconciliation run holds the pipeline lock.",
	}
)
