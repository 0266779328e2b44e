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

package store

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wso2/product-master-data-service/internal/system/config"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/database/provider"
	errors2 "github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
	"github.com/wso2/product-master-data-service/internal/verification/model"
)

// BaselineStore persists the snapshot a later run checks identifier
// stability against.
type BaselineStore interface {
	// Save records a snapshot. The snapshot's RecordedAt is stamped if
	// unset.
	Save(ctx context.Context, snapshot *model.BaselineSnapshot) error
	// Latest returns the most recent snapshot, or nil when none exists.
	Latest(ctx context.Context) (*model.BaselineSnapshot, error)
}

// NewBaselineStore selects the baseline backend from the runtime
// configuration. The mapping datasource doubles as the baseline store
// unless a dedicated document store is configured.
func NewBaselineStore() BaselineStore {
	cfg := config.GetPMSRuntime().Config
	if cfg.Baseline.Store == constants.BaselineStoreMongo {
		return NewMongoBaselineStore(cfg.Baseline)
	}
	return NewSQLBaselineStore()
}

// MongoBaselineStore keeps snapshots in a MongoDB collection, one document
// per published run.
type MongoBaselineStore struct {
	uri        string
	database   string
	collection string
}

// NewMongoBaselineStore creates a baseline store over the configured
// MongoDB deployment.
func NewMongoBaselineStore(cfg config.BaselineConfig) *MongoBaselineStore {
	database := cfg.Database
	if database == "" {
		database = constants.BaselineDatabase
	}
	collection := cfg.Collection
	if collection == "" {
		collection = constants.BaselineCollection
	}
	return &MongoBaselineStore{
		uri:        cfg.URI,
		database:   database,
		collection: collection,
	}
}

func (s *MongoBaselineStore) connect(ctx context.Context) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	return client, nil
}

// Save inserts the snapshot as a new document.
func (s *MongoBaselineStore) Save(ctx context.Context, snapshot *model.BaselineSnapshot) error {
	if snapshot.RecordedAt.IsZero() {
		snapshot.RecordedAt = time.Now().UTC()
	}

	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(ctx) }()

	coll := client.Database(s.database).Collection(s.collection)
	if _, err := coll.InsertOne(ctx, snapshot); err != nil {
		log.GetLogger().Debug("Failed to save baseline snapshot", log.Error(err))
		return errors2.NewServerError(errors2.SAVE_BASELINE_SNAPSHOT, err)
	}

	log.GetLogger().Info("Baseline snapshot saved",
		log.String("version", snapshot.Version),
		log.Int("parents", len(snapshot.Parents)))
	return nil
}

// Latest returns the newest snapshot by recording time.
func (s *MongoBaselineStore) Latest(ctx context.Context) (*model.BaselineSnapshot, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Disconnect(ctx) }()

	coll := client.Database(s.database).Collection(s.collection)
	opts := options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}})

	var snapshot model.BaselineSnapshot
	err = coll.FindOne(ctx, bson.D{}, opts).Decode(&snapshot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.GetLogger().Debug("Failed to fetch baseline snapshot", log.Error(err))
		return nil, errors2.NewServerError(errors2.FETCH_BASELINE_SNAPSHOT, err)
	}
	return &snapshot, nil
}

// SQLBaselineStore keeps snapshots in the mapping datasource, one JSON
// payload per row.
type SQLBaselineStore struct{}

// NewSQLBaselineStore creates a baseline store over the configured
// datasource.
func NewSQLBaselineStore() *SQLBaselineStore {
	return &SQLBaselineStore{}
}

// Save inserts the snapshot as a new row.
func (s *SQLBaselineStore) Save(_ context.Context, snapshot *model.BaselineSnapshot) error {
	if snapshot.RecordedAt.IsZero() {
		snapshot.RecordedAt = time.Now().UTC()
	}

	dbClient, err := provider.NewDBProvider().GetDBClient()
	if err != nil {
		return errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors2.NewServerError(errors2.SAVE_BASELINE_SNAPSHOT, err)
	}

	query := `
		INSERT INTO baseline_snapshots (recorded_at, version, payload)
		VALUES ($1, $2, $3);`
	if err := dbClient.ExecuteStatement(query, snapshot.RecordedAt, snapshot.Version, string(payload)); err != nil {
		log.GetLogger().Debug("Failed to save baseline snapshot", log.Error(err))
		return errors2.NewServerError(errors2.SAVE_BASELINE_SNAPSHOT, err)
	}

	log.GetLogger().Info("Baseline snapshot saved",
		log.String("version", snapshot.Version),
		log.Int("parents", len(snapshot.Parents)))
	return nil
}

// Latest returns the newest snapshot by recording time.
func (s *SQLBaselineStore) Latest(_ context.Context) (*model.BaselineSnapshot, error) {
	dbClient, err := provider.NewDBProvider().GetDBClient()
	if err != nil {
		return nil, errors2.NewServerError(errors2.DB_CLIENT_INIT, err)
	}
	defer dbClient.Close()

	query := `
		SELECT payload
		FROM baseline_snapshots
		ORDER BY recorded_at DESC
		LIMIT 1;`
	results, err := dbClient.ExecuteQuery(query)
	if err != nil {
		log.GetLogger().Debug("Failed to fetch baseline snapshot", log.Error(err))
		return nil, errors2.NewServerError(errors2.FETCH_BASELINE_SNAPSHOT, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	raw, _ := results[0]["payload"].(string)
	if raw == "" {
		if bytes, ok := results[0]["payload"].([]byte); ok {
			raw = string(bytes)
		}
	}

	var snapshot model.BaselineSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, errors2.NewServerError(errors2.FETCH_BASELINE_SNAPSHOT, err)
	}
	return &snapshot, nil
}
