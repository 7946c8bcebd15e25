package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ringstore.io/platform/internal/operation"
)

func TestStopsOnError_TrueBelowDatabase(t *testing.T) {
	for _, r := range []Ring{DataPrep, Validate, Security, Business, Enrich} {
		assert.True(t, r.StopsOnError(), r.String())
	}
	for _, r := range []Ring{Database, PostDatabase, Audit, Integration, Notification} {
		assert.False(t, r.StopsOnError(), r.String())
	}
}

func TestIsSyncIsAsyncPartition(t *testing.T) {
	for _, r := range Sync {
		assert.True(t, r.IsSync())
		assert.False(t, r.IsAsync())
	}
	for _, r := range Async {
		assert.True(t, r.IsAsync())
		assert.False(t, r.IsSync())
	}
}

func TestRelevantRings_MutationsIncludeEverything(t *testing.T) {
	for _, op := range []operation.Operation{operation.Create, operation.Update, operation.Delete, operation.Revert} {
		assert.Equal(t, All, RelevantRings(op))
	}
}

func TestRelevantRings_SelectExcludesBusinessAndPostDatabase(t *testing.T) {
	rings := RelevantRings(operation.Select)
	assert.NotContains(t, rings, Business)
	assert.NotContains(t, rings, PostDatabase)
	assert.Contains(t, rings, DataPrep)
	assert.Contains(t, rings, Database)
	assert.Len(t, rings, len(All)-2)
}
