// Copyright 2025 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/ctaudit/types"
)

// RedisClient is the subset of redis client methods RedisStore uses. It
// allows selecting among client implementations (regular, cluster, ring).
type RedisClient interface {
	Get(key string) *redis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps log state in Redis, one key per log. Suited to audit
// fleets where several processes share a view of each log.
type RedisStore struct {
	c      RedisClient
	prefix string
}

// NewRedisStore returns a RedisStore writing keys under the given prefix.
func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ctaudit/logstate"
	}
	return &RedisStore{c: client, prefix: prefix}
}

func (r *RedisStore) key(id types.LogID) string {
	return fmt.Sprintf("%s/%x", r.prefix, id[:])
}

// GetState implements Store.
func (r *RedisStore) GetState(ctx context.Context, id types.LogID) (*LogState, error) {
	client := withClientContext(ctx, r.c)
	data, err := client.Get(r.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %v", r.key(id), err)
	}
	return decodeState(id, data)
}

// SetState implements Store.
func (r *RedisStore) SetState(ctx context.Context, state *LogState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	client := withClientContext(ctx, r.c)
	if err := client.Set(r.key(state.LogID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %v", r.key(state.LogID), err)
	}
	return nil
}

// withClientContext returns the provided RedisClient bound to ctx where the
// underlying implementation supports it.
func withClientContext(ctx context.Context, client RedisClient) RedisClient {
	type withContextable interface {
		WithContext(context.Context) RedisClient
	}

	switch c := client.(type) {
	case *redis.Client:
		return c.WithContext(ctx)
	case *redis.ClusterClient:
		return c.WithContext(ctx)
	case *redis.Ring:
		return c.WithContext(ctx)
	case withContextable:
		return c.WithContext(ctx)
	}
	return client
}
