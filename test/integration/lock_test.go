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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/product-master-data-service/internal/system/database/lock"
)

// Advisory locks are session-scoped. Each PostgresLock pins its own session
// for the lifetime of the hold, so two instances sharing one pool contend
// the same way two separate processes would.
func TestPostgresLock_RejectsConcurrentHolder(t *testing.T) {
	first := lock.NewPostgresLock()
	second := lock.NewPostgresLock()

	acquired, err := first.Acquire("reconciliation-run")
	require.NoError(t, err)
	require.True(t, acquired)

	// The hold survives until Release; a second taker is rejected, not
	// serialized.
	blocked, err := second.Acquire("reconciliation-run")
	require.NoError(t, err)
	assert.False(t, blocked)

	// A different key is free while the first is held.
	other, err := second.Acquire("another-run")
	require.NoError(t, err)
	assert.True(t, other)
	require.NoError(t, second.Release("another-run"))

	require.NoError(t, first.Release("reconciliation-run"))

	reacquired, err := second.Acquire("reconciliation-run")
	require.NoError(t, err)
	assert.True(t, reacquired)
	require.NoError(t, second.Release("reconciliation-run"))
}
