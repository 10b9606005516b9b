// SPDX-License-Identifier: Apache-2.0
package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/repository"
	"github.com/sentrie-sh/saplpdp/value"
)

func key() repository.Key {
	return repository.Key{Entity: "user:1", AttributeName: "risk.score", Arguments: ""}
}

func TestPublishAndGet(t *testing.T) {
	r := repository.New()
	k := key()
	require.NoError(t, r.PublishAttribute(k, value.NewNumberFromInt64(5), repository.Infinite, repository.Remove))
	assert.Equal(t, value.NewNumberFromInt64(5), r.Get(k))
}

func TestGetOnAbsentKeyIsUndefined(t *testing.T) {
	r := repository.New()
	assert.Equal(t, value.Undefined, r.Get(key()))
}

func TestTTLExpiryRemoveStrategy(t *testing.T) {
	r := repository.New()
	k := key()
	require.NoError(t, r.PublishAttribute(k, value.True, 20*time.Millisecond, repository.Remove))
	assert.Equal(t, value.True, r.Get(k))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, value.Undefined, r.Get(k))
}

func TestTTLExpiryBecomeUndefinedStrategy(t *testing.T) {
	r := repository.New()
	k := key()
	require.NoError(t, r.PublishAttribute(k, value.True, 20*time.Millisecond, repository.BecomeUndefined))

	time.Sleep(80 * time.Millisecond)
	// entry must still be present (as Undefined), not absent.
	assert.Equal(t, value.Undefined, r.Get(k))
}

func TestRepublishCancelsPriorTimer(t *testing.T) {
	r := repository.New()
	k := key()
	require.NoError(t, r.PublishAttribute(k, value.True, 30*time.Millisecond, repository.Remove))
	time.Sleep(15 * time.Millisecond)
	require.NoError(t, r.PublishAttribute(k, value.False, 100*time.Millisecond, repository.Remove))

	time.Sleep(40 * time.Millisecond)
	// original 30ms timer must not have fired and removed the re-published entry.
	assert.Equal(t, value.False, r.Get(k))
}

func TestQueryStreamsUpdates(t *testing.T) {
	r := repository.New()
	k := key()
	ch, cancel := r.Query(k)
	defer cancel()

	require.NoError(t, r.PublishAttribute(k, value.NewNumberFromInt64(1), repository.Infinite, repository.Remove))
	select {
	case v := <-ch:
		assert.Equal(t, value.NewNumberFromInt64(1), v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publish notification")
	}
}

func TestRemoveAttributeDeletesEntry(t *testing.T) {
	r := repository.New()
	k := key()
	require.NoError(t, r.PublishAttribute(k, value.True, repository.Infinite, repository.Remove))
	r.RemoveAttribute(k)
	assert.Equal(t, value.Undefined, r.Get(k))
}

func TestLoadSnapshotHandlesAlreadyExpiredEntries(t *testing.T) {
	r := repository.New()
	k := key()
	r.LoadSnapshot([]repository.Snapshot{
		{Key: k, Value: value.True, Strategy: repository.Remove, ExpiresAt: time.Now().Add(-time.Hour)},
	})
	assert.Equal(t, value.Undefined, r.Get(k))
}

func TestLoadSnapshotRearmsTimerForActiveEntries(t *testing.T) {
	r := repository.New()
	k := key()
	r.LoadSnapshot([]repository.Snapshot{
		{Key: k, Value: value.True, Strategy: repository.Remove, ExpiresAt: time.Now().Add(30 * time.Millisecond)},
	})
	assert.Equal(t, value.True, r.Get(k))
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, value.Undefined, r.Get(k))
}
