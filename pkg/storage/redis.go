package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/maternal-risk/pkg/risk"
)

const (
	fieldVariant   = "_variant"
	fieldCreatedAt = "_created_at"
	// superseded versions linger this long for in-flight readers.
	supersededTTL = 24 * time.Hour
)

// RedisStore keeps each version in a hash at <prefix>:<version> and the
// active version id at <prefix>:active.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "maternal-risk:model"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) activeKey() string { return s.prefix + ":active" }

func (s *RedisStore) versionKey(version string) string {
	return fmt.Sprintf("%s:%s", s.prefix, version)
}

func (s *RedisStore) LoadArtifacts(ctx context.Context) (risk.ArtifactSet, error) {
	version, err := s.client.Get(ctx, s.activeKey()).Result()
	if errors.Is(err, redis.Nil) {
		return risk.ArtifactSet{}, risk.ErrArtifactsNotFound
	}
	if err != nil {
		return risk.ArtifactSet{}, err
	}

	fields, err := s.client.HGetAll(ctx, s.versionKey(version)).Result()
	if err != nil {
		return risk.ArtifactSet{}, err
	}
	if len(fields) == 0 {
		return risk.ArtifactSet{}, fmt.Errorf("active version %s has no artifacts: %w", version, risk.ErrArtifactMismatch)
	}
	return setFromHash(version, fields), nil
}

// SaveArtifacts writes the version hash and flips the active key in one
// MULTI/EXEC. The previous version expires after a grace period.
func (s *RedisStore) SaveArtifacts(ctx context.Context, set risk.ArtifactSet) error {
	fields, err := hashFromSet(set)
	if err != nil {
		return err
	}
	previous, err := s.client.Get(ctx, s.activeKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := s.versionKey(set.Version)
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Set(ctx, s.activeKey(), set.Version, 0)
		if previous != "" && previous != set.Version {
			pipe.Expire(ctx, s.versionKey(previous), supersededTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write artifacts %s: %w", set.Version, err)
	}
	return nil
}

func hashFromSet(set risk.ArtifactSet) (map[string]interface{}, error) {
	if set.Version == "" {
		return nil, fmt.Errorf("artifact set without version: %w", risk.ErrInvalidInput)
	}
	fields := map[string]interface{}{
		fieldVariant:   string(set.Variant),
		fieldCreatedAt: set.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, name := range risk.ArtifactNames {
		blob, ok := set.Blobs[name]
		if !ok {
			return nil, fmt.Errorf("artifact %s missing from set %s: %w", name, set.Version, risk.ErrArtifactMismatch)
		}
		fields[name] = blob
	}
	return fields, nil
}

func setFromHash(version string, fields map[string]string) risk.ArtifactSet {
	set := risk.ArtifactSet{
		Version: version,
		Variant: risk.Variant(fields[fieldVariant]),
		Blobs:   make(map[string][]byte, len(risk.ArtifactNames)),
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err == nil {
		set.CreatedAt = ts
	}
	for _, name := range risk.ArtifactNames {
		if blob, ok := fields[name]; ok {
			set.Blobs[name] = []byte(blob)
		}
	}
	return set
}
