// Copyright 2025 Octank Insurance
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

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisSessionPrefix = "session:"

// RedisStore is a Redis-backed SessionStore for multi-instance
// deployments. Sessions are stored as JSON values whose TTL equals the
// idle timeout, so expiry is enforced by Redis itself; Get additionally
// checks LastActive so behavior matches the in-memory store when a key
// outlives a stale TTL.
type RedisStore struct {
	client    *redis.Client
	directory *MemberDirectory
	timeout   time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, directory *MemberDirectory, timeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, directory: directory, timeout: timeout}, nil
}

func (r *RedisStore) Create(memberID string) (*Session, error) {
	member, err := r.directory.Get(memberID)
	if err != nil {
		return nil, err
	}

	session := newSession(member)
	if err := r.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *RedisStore) Get(sessionID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := r.client.Get(ctx, redisSessionPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", sessionID, err)
	}

	if session.Expired(r.timeout) {
		r.client.Del(ctx, redisSessionPrefix+sessionID)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return &session, nil
}

func (r *RedisStore) Save(session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.SessionID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, redisSessionPrefix+session.SessionID, raw, r.timeout).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) List() []SessionSummary {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out []SessionSummary
	iter := r.client.Scan(ctx, 0, redisSessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s.Expired(r.timeout) {
			continue
		}
		out = append(out, SessionSummary{
			SessionID:  s.SessionID,
			MemberID:   s.MemberID,
			MemberName: s.Member.Name,
			TurnCount:  s.TurnCount,
			Escalated:  s.Escalated,
		})
	}
	return out
}
