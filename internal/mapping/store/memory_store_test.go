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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/product-master-data-service/internal/catalog/model"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/log"
)

func TestMain(m *testing.M) {
	_ = log.Init("ERROR")
	os.Exit(m.Run())
}

func TestUpsertAuto_CreatesParentWithStableID(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("redapple1kg", "redapple1kg", "Red Apple 1kg"))

	entry, err := s.Get("redapple1kg")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, constants.ProvenanceAuto, entry.Provenance)

	parent, err := s.GetParent(entry.ParentID)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "Red Apple 1kg", parent.Name)
	assert.Equal(t, "redapple1kg", parent.CanonicalKey)
	assert.Equal(t, []string{"redapple1kg"}, parent.MemberKeys)

	// Same founding key on a fresh store derives the same identifier.
	other := NewMemoryStore()
	require.NoError(t, other.UpsertAuto("redapple1kg", "redapple1kg", "Red Apple 1kg"))
	otherEntry, err := other.Get("redapple1kg")
	require.NoError(t, err)
	assert.Equal(t, entry.ParentID, otherEntry.ParentID)
}

func TestUpsertAuto_AttachesToExistingParent(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("tomato", "tomato", "Tomato"))
	require.NoError(t, s.UpsertAuto("tomatoes", "tomato", "Tomato"))

	first, _ := s.Get("tomato")
	second, _ := s.Get("tomatoes")
	assert.Equal(t, first.ParentID, second.ParentID)

	parent, err := s.GetParent(first.ParentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tomato", "tomatoes"}, parent.MemberKeys)
}

func TestUpsertAuto_ExistingBindingIsStableAcrossRuns(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("potato", "potato", "Potato"))
	before, _ := s.Get("potato")

	// A later run proposing a different cluster must not move the key.
	require.NoError(t, s.UpsertAuto("potato", "potatoes", "Potatoes"))
	after, _ := s.Get("potato")

	assert.Equal(t, before.ParentID, after.ParentID)
}

func TestUpsertOverride_WinsOverAuto(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("lamb", "lamb", "Lamb"))
	require.NoError(t, s.CreateParent(model.ParentProduct{
		ParentID:     "parent-meat",
		Name:         "Meat Package",
		CanonicalKey: "meatpackage",
	}))
	require.NoError(t, s.UpsertOverride("lamb", "parent-meat"))

	entry, err := s.Get("lamb")
	require.NoError(t, err)
	assert.Equal(t, "parent-meat", entry.ParentID)
	assert.Equal(t, constants.ProvenanceOverride, entry.Provenance)

	// Auto proposals never displace an override.
	require.NoError(t, s.UpsertAuto("lamb", "lamb", "Lamb"))
	entry, _ = s.Get("lamb")
	assert.Equal(t, "parent-meat", entry.ParentID)
	assert.Equal(t, constants.ProvenanceOverride, entry.Provenance)
}

func TestUpsertOverride_MovesKeyBetweenMemberSets(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("lamb", "lamb", "Lamb"))
	autoEntry, _ := s.Get("lamb")

	require.NoError(t, s.CreateParent(model.ParentProduct{
		ParentID: "parent-meat", Name: "Meat Package", CanonicalKey: "meatpackage",
	}))
	require.NoError(t, s.UpsertOverride("lamb", "parent-meat"))

	previous, err := s.GetParent(autoEntry.ParentID)
	require.NoError(t, err)
	assert.Empty(t, previous.MemberKeys, "key must leave its previous member set")

	target, err := s.GetParent("parent-meat")
	require.NoError(t, err)
	assert.Equal(t, []string{"lamb"}, target.MemberKeys)
}

func TestUpsertOverride_RefusesRetiredParent(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.CreateParent(model.ParentProduct{
		ParentID: "parent-old", Name: "Old", CanonicalKey: "old",
	}))
	require.NoError(t, s.RetireParent("parent-old"))

	err := s.UpsertOverride("somekey", "parent-old")
	var retiredErr *ErrRetiredParent
	require.ErrorAs(t, err, &retiredErr)
	assert.Equal(t, "parent-old", retiredErr.ParentID)
}

func TestRetireParent_TombstoneIDNeverReassigned(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("ginger", "ginger", "Ginger"))
	entry, _ := s.Get("ginger")
	require.NoError(t, s.RetireParent(entry.ParentID))

	// A fresh auto proposal for the same founding key must derive a new
	// identifier, not resurrect the tombstone.
	require.NoError(t, s.UpsertAuto("gingerroot", "ginger", "Ginger"))
	fresh, _ := s.Get("gingerroot")
	assert.NotEqual(t, entry.ParentID, fresh.ParentID)

	retired, err := s.RetiredParents()
	require.NoError(t, err)
	require.Len(t, retired, 1)
	assert.Equal(t, entry.ParentID, retired[0].ParentID)

	active, err := s.Parents()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotEqual(t, entry.ParentID, active[0].ParentID)
}

func TestList_SortedByKey(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("zucchini", "zucchini", "Zucchini"))
	require.NoError(t, s.UpsertAuto("avocado", "avocado", "Avocado"))
	require.NoError(t, s.UpsertAuto("banana", "banana", "Banana"))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "avocado", entries[0].Key)
	assert.Equal(t, "banana", entries[1].Key)
	assert.Equal(t, "zucchini", entries[2].Key)
}

func TestCreateParent_DuplicateIDRejected(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.CreateParent(model.ParentProduct{ParentID: "p1", Name: "A", CanonicalKey: "a"}))
	err := s.CreateParent(model.ParentProduct{ParentID: "p1", Name: "B", CanonicalKey: "b"})

	var existsErr *ErrParentExists
	assert.ErrorAs(t, err, &existsErr)
}

func TestRenameParent(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.UpsertAuto("carrot", "carrot", "carrot"))
	entry, _ := s.Get("carrot")

	require.NoError(t, s.RenameParent(entry.ParentID, "Carrot"))
	parent, _ := s.GetParent(entry.ParentID)
	assert.Equal(t, "Carrot", parent.Name)

	err := s.RenameParent("missing", "X")
	var unknownErr *ErrUnknownParent
	assert.ErrorAs(t, err, &unknownErr)
}
