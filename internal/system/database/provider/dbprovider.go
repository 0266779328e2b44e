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
	"database/sql"
	"fmt"

	"github.com/wso2/product-master-data-service/internal/system/config"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/database/client"
)

// DBConfig represents the resolved database connection configuration.
type DBConfig struct {
	dsn        string
	driverName string
}

// DBProviderInterface defines the interface for getting database clients.
type DBProviderInterface interface {
	GetDBClient() (client.DBClientInterface, error)
}

// DBProvider is the implementation of DBProviderInterface.
type DBProvider struct{}

// testDB, when set, routes every client at a pre-opened database.
var testDB *sql.DB

// SetTestDB points all database clients at the given connection. Used by
// the integration test setup together with TEST_MODE.
func SetTestDB(db *sql.DB) {
	testDB = db
}

// NewDBProvider creates a new instance of DBProvider.
func NewDBProvider() DBProviderInterface {

	return &DBProvider{}
}

// GetDBClient returns a database client for the configured datasource.
func (d *DBProvider) GetDBClient() (client.DBClientInterface, error) {

	db, _, err := GetRawDB()
	if err != nil {
		return nil, err
	}
	return client.NewDBClient(db), nil
}

// GetRawDB opens the configured datasource and returns the underlying pool.
// Callers that need session-scoped state, such as advisory locks, pin their
// own sql.Conn from it. The boolean reports whether the caller owns the pool
// and must close it; a shared test database is never owned.
func GetRawDB() (*sql.DB, bool, error) {

	if testDB != nil {
		return testDB, false, nil
	}

	runtimeConfig := config.GetPMSRuntime().Config
	dbConfig := getDBConfig(runtimeConfig)

	db, err := sql.Open(dbConfig.driverName, dbConfig.dsn)
	if err != nil {
		return nil, false, fmt.Errorf("failed to connect to database: %v", err)
	}

	// Test the database connection.
	if err := db.Ping(); err != nil {
		return nil, false, fmt.Errorf("failed to ping database: %v", err)
	}

	return db, true, nil
}

// InitDatabase creates the mapping store schema from a SQL script file
// resolved against the runtime home directory.
func InitDatabase(pmsHome, schemaFile string) error {

	dbClient, err := NewDBProvider().GetDBClient()
	if err != nil {
		return fmt.Errorf("failed to get database client: %v", err)
	}
	defer dbClient.Close()

	return dbClient.InitDatabase(pmsHome, schemaFile)
}

// getDBConfig returns the driver and DSN for the configured datasource type.
// A remote store runs on Postgres; a local working copy runs on SQLite.
func getDBConfig(conf config.Config) DBConfig {

	var dbConfig DBConfig

	if conf.DataSource.Type == constants.DataSourceTypeSQLite {
		dbConfig.driverName = "sqlite"
		dbConfig.dsn = conf.DataSource.Path
		return dbConfig
	}

	dbConfig.driverName = "postgres"
	dbConfig.dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		conf.DataSource.Hostname, conf.DataSource.Port, conf.DataSource.Username, conf.DataSource.Password,
		conf.DataSource.Name, conf.DataSource.SSLMode)

	return dbConfig
}
