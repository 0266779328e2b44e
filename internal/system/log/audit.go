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

package log

import (
	"encoding/json"
	"log/slog"
	"time"
)

// AuditEvent represents a structured audit log entry for mapping mutations.
type AuditEvent struct {
	RecordedAt string      `json:"recordedAt"`
	ActionID   string      `json:"actionId"`
	TargetID   string      `json:"targetId"`
	TargetType string      `json:"targetType"`
	Data       interface{} `json:"data,omitempty"`
}

// Audit logs an audit event with structured fields.
func (l *Logger) Audit(event AuditEvent) {
	if event.RecordedAt == "" {
		event.RecordedAt = time.Now().UTC().Format(time.RFC3339)
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		l.Error("Failed to marshal audit event", Error(err))
		return
	}

	l.internal.Info("AUDIT", slog.String("audit_event", string(jsonData)))
}

// Action IDs for audit logging
const (
	// Mapping store operations
	ActionUpsertAuto     = "upsert-auto-mapping"
	ActionUpsertOverride = "upsert-override-mapping"
	ActionCreateParent   = "create-parent-product"
	ActionRenameParent   = "rename-parent-product"
	ActionMergeParents   = "merge-parent-products"
	ActionSplitParent    = "split-parent-product"
	ActionRetireParent   = "retire-parent-product"

	// Target types
	TargetMappingEntry  = "mapping-entry"
	TargetParentProduct = "parent-product"
)
