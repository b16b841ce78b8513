package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

func TestRecordsRoundTrip(t *testing.T) {
	set := sampleSet(risk.VariantEnhanced)
	records, err := recordsFromSet(set)
	require.NoError(t, err)
	require.Len(t, records, len(risk.ArtifactNames))

	active := ActiveModel{Slot: activeSlot, Version: set.Version, Variant: string(set.Variant), CreatedAt: set.CreatedAt}
	assert.Equal(t, set, setFromRecords(active, records))

	delete(set.Blobs, risk.ArtifactScaler)
	_, err = recordsFromSet(set)
	assert.ErrorIs(t, err, risk.ErrArtifactMismatch)
}

func TestHashRoundTrip(t *testing.T) {
	set := sampleSet(risk.VariantBasic)
	fields, err := hashFromSet(set)
	require.NoError(t, err)

	strs := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case []byte:
			strs[k] = string(val)
		case string:
			strs[k] = val
		}
	}
	got := setFromHash(set.Version, strs)
	assert.Equal(t, set.Variant, got.Variant)
	assert.True(t, set.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, set.Blobs, got.Blobs)

	_, err = hashFromSet(risk.ArtifactSet{})
	assert.ErrorIs(t, err, risk.ErrInvalidInput)
}

// TestRedisStore runs against a live server named by REDIS_TEST_ADDR.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	prefix := "maternal-risk-test:" + time.Now().Format("150405.000000")
	store := NewRedisStore(client, prefix)
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	_, err := store.LoadArtifacts(ctx)
	require.ErrorIs(t, err, risk.ErrArtifactsNotFound)

	first := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, first))
	second := sampleSet(risk.VariantEnhanced)
	require.NoError(t, store.SaveArtifacts(ctx, second))

	loaded, err := store.LoadArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Version, loaded.Version)
	assert.Equal(t, second.Blobs, loaded.Blobs)

	ttl, err := client.TTL(ctx, store.versionKey(first.Version)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
