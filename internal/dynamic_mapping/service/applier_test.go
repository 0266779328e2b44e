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

package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/product-master-data-service/internal/dynamic_mapping/model"
	"github.com/wso2/product-master-data-service/internal/mapping/store"
	"github.com/wso2/product-master-data-service/internal/system/constants"
	"github.com/wso2/product-master-data-service/internal/system/errors"
)

// seedStore builds a store with one auto cluster per entry: key -> name.
func seedStore(t *testing.T, clusters map[string]string) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for key, name := range clusters {
		require.NoError(t, s.UpsertAuto(key, key, name))
	}
	return s
}

func parentOf(t *testing.T, s store.MappingStore, key string) string {
	t.Helper()
	entry, err := s.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	return entry.ParentID
}

func TestApply_BindingOverridesAutoMapping(t *testing.T) {
	s := seedStore(t, map[string]string{
		"redapple1kg":   "Red Apple 1kg",
		"greenapple1kg": "Green Apple 1kg",
	})
	target := parentOf(t, s, "greenapple1kg")

	result, err := Apply(&model.MappingConfiguration{
		Version:  "1",
		Bindings: []model.Binding{{Key: "redapple1kg", ParentID: target}},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)
	assert.Equal(t, 0, result.ConflictCount)

	entry, err := s.Get("redapple1kg")
	require.NoError(t, err)
	assert.Equal(t, target, entry.ParentID)
	assert.Equal(t, constants.ProvenanceOverride, entry.Provenance)
}

func TestApply_OneBadBindingDoesNotBlockTheRest(t *testing.T) {
	clusters := map[string]string{"retired": "Retired"}
	for i := 0; i < 9; i++ {
		key := fmt.Sprintf("item%d", i)
		clusters[key] = key
	}
	s := seedStore(t, clusters)

	tombstone := parentOf(t, s, "retired")
	require.NoError(t, s.RetireParent(tombstone))

	target := parentOf(t, s, "item0")
	cfg := &model.MappingConfiguration{Version: "1"}
	for i := 0; i < 9; i++ {
		cfg.Bindings = append(cfg.Bindings, model.Binding{
			Key:      fmt.Sprintf("item%d", i),
			ParentID: target,
		})
	}
	// One binding references a tombstone; the other nine still apply.
	cfg.Bindings = append(cfg.Bindings, model.Binding{Key: "item5x", ParentID: tombstone})

	result, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 9, result.AppliedCount)
	assert.Equal(t, 1, result.ConflictCount)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "bindings", result.Rejected[0].Section)
	assert.Equal(t, "item5x", result.Rejected[0].Target)

	for i := 0; i < 9; i++ {
		assert.Equal(t, target, parentOf(t, s, fmt.Sprintf("item%d", i)))
	}
}

func TestApply_DuplicateKeyInDocumentFirstWins(t *testing.T) {
	s := seedStore(t, map[string]string{
		"tomato": "Tomato",
		"potato": "Potato",
	})
	first := parentOf(t, s, "tomato")
	second := parentOf(t, s, "potato")

	result, err := Apply(&model.MappingConfiguration{
		Version: "1",
		Bindings: []model.Binding{
			{Key: "cherrytomato", ParentID: first},
			{Key: "cherrytomato", ParentID: second},
		},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)
	assert.Equal(t, 1, result.ConflictCount)
	assert.Equal(t, first, parentOf(t, s, "cherrytomato"))
}

func TestApply_BindingToUnknownParentCreatesIt(t *testing.T) {
	s := seedStore(t, map[string]string{"tomato": "Tomato"})

	result, err := Apply(&model.MappingConfiguration{
		Version:  "1",
		Bindings: []model.Binding{{Key: "tomato", ParentID: "hand-picked-id"}},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)

	parent, err := s.GetParent("hand-picked-id")
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, []string{"tomato"}, parent.MemberKeys)
}

func TestApply_Rename(t *testing.T) {
	s := seedStore(t, map[string]string{"redapple1kg": "redapple1kg"})
	id := parentOf(t, s, "redapple1kg")

	result, err := Apply(&model.MappingConfiguration{
		Version: "1",
		Renames: map[string]string{
			id:        "Red Apple 1kg",
			"missing": "Ghost",
		},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)
	assert.Equal(t, 1, result.ConflictCount)

	parent, err := s.GetParent(id)
	require.NoError(t, err)
	assert.Equal(t, "Red Apple 1kg", parent.Name)
}

func TestApply_MergeRebindsMembersAndRetiresSource(t *testing.T) {
	s := seedStore(t, map[string]string{"tomato": "Tomato"})
	require.NoError(t, s.UpsertAuto("tomatoes", "tomato", "Tomato"))
	require.NoError(t, s.UpsertAuto("tomatos", "tomatos", "Tomatos"))

	target := parentOf(t, s, "tomato")
	source := parentOf(t, s, "tomatos")

	cfg := &model.MappingConfiguration{
		Version: "1",
		Merges:  []model.MergeDirective{{Target: target, Source: source}},
	}
	result, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)

	assert.Equal(t, target, parentOf(t, s, "tomatos"))
	entry, _ := s.Get("tomatos")
	assert.Equal(t, constants.ProvenanceOverride, entry.Provenance)

	retired, err := s.GetParent(source)
	require.NoError(t, err)
	assert.True(t, retired.Retired)
	assert.Empty(t, retired.MemberKeys)

	// Reapplying the same directive is a no-op, not an error.
	again, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 1, again.AppliedCount)
	assert.Equal(t, 0, again.ConflictCount)
	assert.Equal(t, target, parentOf(t, s, "tomatos"))
}

func TestApply_MergeIntoRetiredTargetRejected(t *testing.T) {
	s := seedStore(t, map[string]string{
		"tomato": "Tomato",
		"potato": "Potato",
	})
	target := parentOf(t, s, "tomato")
	source := parentOf(t, s, "potato")
	require.NoError(t, s.RetireParent(target))

	result, err := Apply(&model.MappingConfiguration{
		Version: "1",
		Merges:  []model.MergeDirective{{Target: target, Source: source}},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ConflictCount)

	// Source is untouched.
	parent, err := s.GetParent(source)
	require.NoError(t, err)
	assert.False(t, parent.Retired)
}

func TestApply_SplitPartitionsMembers(t *testing.T) {
	s := seedStore(t, map[string]string{"apple1kg": "Apple 1kg"})
	require.NoError(t, s.UpsertAuto("greenapple1kg", "apple1kg", "Apple 1kg"))
	require.NoError(t, s.UpsertAuto("redapple1kg", "apple1kg", "Apple 1kg"))
	original := parentOf(t, s, "apple1kg")

	cfg := &model.MappingConfiguration{
		Version: "1",
		Splits: map[string][]model.SplitPart{
			original: {
				{Name: "Green Apple 1kg", Keys: []string{"greenapple1kg"}},
				{Name: "Apple 1kg", Keys: []string{"apple1kg", "redapple1kg"}},
			},
		},
	}
	result, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedCount)
	assert.Equal(t, 0, result.ConflictCount)

	retired, err := s.GetParent(original)
	require.NoError(t, err)
	assert.True(t, retired.Retired)

	greenID := parentOf(t, s, "greenapple1kg")
	appleID := parentOf(t, s, "apple1kg")
	assert.NotEqual(t, greenID, appleID)
	assert.NotEqual(t, original, greenID)
	assert.NotEqual(t, original, appleID)
	assert.Equal(t, appleID, parentOf(t, s, "redapple1kg"))

	green, _ := s.GetParent(greenID)
	assert.Equal(t, "Green Apple 1kg", green.Name)

	// Reapply is idempotent: same parts, same identifiers, no churn.
	again, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 1, again.AppliedCount)
	assert.Equal(t, greenID, parentOf(t, s, "greenapple1kg"))
	assert.Equal(t, appleID, parentOf(t, s, "apple1kg"))
}

func TestApply_SplitMustCoverAllMembers(t *testing.T) {
	s := seedStore(t, map[string]string{"apple1kg": "Apple 1kg"})
	require.NoError(t, s.UpsertAuto("greenapple1kg", "apple1kg", "Apple 1kg"))
	require.NoError(t, s.UpsertAuto("redapple1kg", "apple1kg", "Apple 1kg"))
	original := parentOf(t, s, "apple1kg")

	_, err := Apply(&model.MappingConfiguration{
		Version: "1",
		Splits: map[string][]model.SplitPart{
			original: {
				{Keys: []string{"greenapple1kg"}},
				{Keys: []string{"redapple1kg"}},
			},
		},
	}, s)

	var clientErr *errors.ClientError
	require.ErrorAs(t, err, &clientErr)

	// Nothing moved and nothing was retired.
	parent, getErr := s.GetParent(original)
	require.NoError(t, getErr)
	assert.False(t, parent.Retired)
	assert.Equal(t, original, parentOf(t, s, "greenapple1kg"))
	assert.Equal(t, original, parentOf(t, s, "redapple1kg"))
}

func TestApply_SplitOfMergeTargetMustCoverFoldedKeys(t *testing.T) {
	s := seedStore(t, map[string]string{
		"apple1kg": "Apple 1kg",
		"pear":     "Pear",
	})
	require.NoError(t, s.UpsertAuto("redapple1kg", "apple1kg", "Apple 1kg"))
	appleID := parentOf(t, s, "apple1kg")
	pearID := parentOf(t, s, "pear")

	// The merge folds pear into the apple parent before the splits run, so
	// a split listing only the original apple keys no longer covers the
	// parent: applying it would strand pear on the retired identifier.
	cfg := &model.MappingConfiguration{
		Version: "1",
		Merges:  []model.MergeDirective{{Target: appleID, Source: pearID}},
		Splits: map[string][]model.SplitPart{
			appleID: {
				{Keys: []string{"apple1kg"}},
				{Keys: []string{"redapple1kg"}},
			},
		},
	}
	_, err := Apply(cfg, s)
	var clientErr *errors.ClientError
	require.ErrorAs(t, err, &clientErr)

	// Refused before anything mutated.
	assert.Equal(t, pearID, parentOf(t, s, "pear"))
	for _, id := range []string{appleID, pearID} {
		parent, getErr := s.GetParent(id)
		require.NoError(t, getErr)
		assert.False(t, parent.Retired)
	}

	// Listing the folded key as its own part makes the document valid.
	cfg.Splits[appleID] = append(cfg.Splits[appleID],
		model.SplitPart{Name: "Pear", Keys: []string{"pear"}})
	result, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ConflictCount)

	retired, err := s.GetParent(appleID)
	require.NoError(t, err)
	assert.True(t, retired.Retired)

	// Every key ends on an active parent.
	entries, err := s.List()
	require.NoError(t, err)
	for _, entry := range entries {
		parent, getErr := s.GetParent(entry.ParentID)
		require.NoError(t, getErr)
		require.NotNil(t, parent)
		assert.False(t, parent.Retired, "key %s is bound to a retired parent", entry.Key)
	}
}

func TestApply_SplitOfNonMemberKeyFails(t *testing.T) {
	s := seedStore(t, map[string]string{
		"apple1kg": "Apple 1kg",
		"tomato":   "Tomato",
	})
	require.NoError(t, s.UpsertAuto("redapple1kg", "apple1kg", "Apple 1kg"))
	original := parentOf(t, s, "apple1kg")

	_, err := Apply(&model.MappingConfiguration{
		Version: "1",
		Splits: map[string][]model.SplitPart{
			original: {
				{Keys: []string{"apple1kg", "tomato"}},
				{Keys: []string{"redapple1kg"}},
			},
		},
	}, s)

	var clientErr *errors.ClientError
	require.ErrorAs(t, err, &clientErr)
}

func TestApply_FullConfigurationIsIdempotent(t *testing.T) {
	build := func() *store.MemoryStore {
		s := seedStore(t, map[string]string{
			"tomato":   "Tomato",
			"tomatos":  "Tomatos",
			"apple1kg": "Apple 1kg",
		})
		require.NoError(t, s.UpsertAuto("greenapple1kg", "apple1kg", "Apple 1kg"))
		return s
	}

	s := build()
	cfg := &model.MappingConfiguration{
		Version: "1",
		Renames: map[string]string{parentOf(t, s, "tomato"): "Tomato (fresh)"},
		Merges: []model.MergeDirective{
			{Target: parentOf(t, s, "tomato"), Source: parentOf(t, s, "tomatos")},
		},
		Splits: map[string][]model.SplitPart{
			parentOf(t, s, "apple1kg"): {
				{Name: "Apple 1kg", Keys: []string{"apple1kg"}},
				{Name: "Green Apple 1kg", Keys: []string{"greenapple1kg"}},
			},
		},
		Bindings: []model.Binding{
			{Key: "cherrytomato", ParentID: parentOf(t, s, "tomato")},
		},
	}

	_, err := Apply(cfg, s)
	require.NoError(t, err)
	firstEntries, err := s.List()
	require.NoError(t, err)

	again, err := Apply(cfg, s)
	require.NoError(t, err)
	assert.Equal(t, 0, again.ConflictCount)
	secondEntries, err := s.List()
	require.NoError(t, err)

	require.Len(t, secondEntries, len(firstEntries))
	for i := range firstEntries {
		assert.Equal(t, firstEntries[i].Key, secondEntries[i].Key)
		assert.Equal(t, firstEntries[i].ParentID, secondEntries[i].ParentID)
		assert.Equal(t, firstEntries[i].Provenance, secondEntries[i].Provenance)
	}
}
