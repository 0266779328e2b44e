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

package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/wso2/product-master-data-service/internal/system/database/provider"
	"github.com/wso2/product-master-data-service/internal/system/errors"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

// DistributedLock guards full reconciliation runs against the same store.
// The pipeline assumes single-writer access; concurrent invocations must be
// rejected, not serialized.
type DistributedLock interface {
	Acquire(key string) (bool, error)
	Release(key string) error
}

// PostgresLock implements DistributedLock using PostgreSQL advisory locks.
// Advisory locks are session-scoped, so the lock pins a dedicated sql.Conn
// from Acquire until Release; letting the connection go back to the pool
// would drop the lock while the holder still believes it is held.
type PostgresLock struct {
	db     *sql.DB
	conn   *sql.Conn
	ownsDB bool
}

func NewPostgresLock() *PostgresLock {
	return &PostgresLock{}
}

// PostgreSQL advisory locks use bigint or two integers. We'll use a single bigint.
func (l *PostgresLock) generateLockKey(key string) (int64, error) {

	logger := log.GetLogger()
	h := fnv.New64a()
	_, err := h.Write([]byte(key))
	if err != nil {
		errorMsg := fmt.Sprintf("failed to hash lock key '%s'", key)
		logger.Debug(errorMsg, log.Error(err))
		serverError := errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_KEY_GEN.Code,
			Message:     errors.LOCK_KEY_GEN.Message,
			Description: errorMsg,
		}, err)
		return 0, serverError
	}
	return int64(h.Sum64()), nil
}

func (l *PostgresLock) Acquire(key string) (bool, error) {

	logger := log.GetLogger()
	if l.conn != nil {
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_ACQUIRE.Code,
			Message:     errors.LOCK_ACQUIRE.Message,
			Description: "lock already holds a database session; release it first",
		}, nil)
	}

	db, ownsDB, err := provider.GetRawDB()
	if err != nil {
		errorMsg := "Failed during DB connection setup for advisory lock acquiring."
		logger.Error(errorMsg, log.Error(err))
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.DB_CLIENT_INIT.Code,
			Message:     errors.DB_CLIENT_INIT.Message,
			Description: errorMsg,
		}, err)
	}

	lockID, err := l.generateLockKey(key)
	if err != nil {
		if ownsDB {
			_ = db.Close()
		}
		errorMsg := "Could not create advisory lock key from input."
		logger.Error(errorMsg, log.Error(err))
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_KEY_GEN.Code,
			Message:     errors.LOCK_KEY_GEN.Message,
			Description: errorMsg,
		}, err)
	}
	logger.Debug(fmt.Sprintf("Generated lock Id: %d", lockID))

	conn, err := db.Conn(context.Background())
	if err != nil {
		if ownsDB {
			_ = db.Close()
		}
		errorMsg := "Failed to pin a database session for the advisory lock."
		logger.Error(errorMsg, log.Error(err))
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.DB_CLIENT_INIT.Code,
			Message:     errors.DB_CLIENT_INIT.Message,
			Description: errorMsg,
		}, err)
	}

	var acquired bool
	err = conn.QueryRowContext(context.Background(), "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired)
	if err != nil {
		_ = conn.Close()
		if ownsDB {
			_ = db.Close()
		}
		errorMsg := "Failed to execute pg_try_advisory_lock"
		logger.Error(errorMsg, log.Error(err))
		return false, errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_ACQUIRE.Code,
			Message:     errors.LOCK_ACQUIRE.Message,
			Description: errorMsg,
		}, err)
	}

	if !acquired {
		_ = conn.Close()
		if ownsDB {
			_ = db.Close()
		}
		return false, nil
	}

	l.db = db
	l.conn = conn
	l.ownsDB = ownsDB
	return true, nil
}

func (l *PostgresLock) Release(key string) error {

	if l.conn == nil {
		return nil
	}

	lockID, err := l.generateLockKey(key)
	if err != nil {
		return err
	}

	var released bool
	unlockErr := l.conn.QueryRowContext(context.Background(),
		"SELECT pg_advisory_unlock($1)", lockID).Scan(&released)

	// The session is torn down either way; closing the owned pool ends it,
	// which drops any lock the unlock call failed to release.
	_ = l.conn.Close()
	if l.ownsDB {
		_ = l.db.Close()
	}
	l.conn = nil
	l.db = nil
	l.ownsDB = false

	if unlockErr != nil {
		errorMsg := "Failed to execute pg_advisory_unlock"
		log.GetLogger().Error(errorMsg, log.Error(unlockErr))
		return errors.NewServerError(errors.ErrorMessage{
			Code:        errors.LOCK_RELEASE.Code,
			Message:     errors.LOCK_RELEASE.Message,
			Description: errorMsg,
		}, unlockErr)
	}
	return nil
}

// NoopLock implements DistributedLock for single-process SQLite deployments
// where the database file itself is single-writer.
type NoopLock struct{}

func NewNoopLock() *NoopLock {
	return &NoopLock{}
}

func (l *NoopLock) Acquire(string) (bool, error) {
	return true, nil
}

func (l *NoopLock) Release(string) error {
	return nil
}
