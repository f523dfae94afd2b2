// Package search serves task search queries through a TTL-bounded result
// cache. Entries are never actively invalidated on task writes: staleness is
// bounded by the TTL and callers that need strong consistency must query the
// task store directly. That trade-off is part of this package's contract.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskpulse/backend/repository"
)

// DefaultTTL is the freshness window applied when the caller does not override it.
const DefaultTTL = 300 * time.Second

const keyPrefix = "search:"

type Service struct {
	tasks  repository.TaskRepository
	cache  repository.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, cache repository.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tasks:  tasks,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// KeyFor derives a deterministic cache key from the query parameters. Params
// are canonicalized first (tags sorted, absent optionals rendered as empty
// strings, defaults for paging and sort filled in) so logically identical
// queries always land on the same key. Fields are length-prefixed before
// hashing to keep adjacent values unambiguous.
func KeyFor(params repository.SearchParams) string {
	norm := normalize(params)

	h := sha256.New()
	writeField := func(s string) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}

	writeField(norm.Query)
	writeField(strings.Join(norm.Tags, ","))
	writeField(norm.Status)
	writeField(norm.Priority)
	writeField(timeField(norm.DueFrom))
	writeField(timeField(norm.DueTo))
	writeField(norm.OwnerID)
	writeField(strconv.Itoa(norm.Page))
	writeField(strconv.Itoa(norm.Size))
	writeField(norm.SortBy)
	writeField(norm.SortOrder)

	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Search answers from the cache within the freshness window and recomputes on
// a miss using the default TTL. Cache failures degrade to direct store
// queries; they are logged, never surfaced.
func (s *Service) Search(ctx context.Context, params repository.SearchParams) (*repository.SearchResult, error) {
	return s.SearchWithTTL(ctx, params, s.ttl)
}

// SearchWithTTL is Search with a per-call freshness window.
func (s *Service) SearchWithTTL(ctx context.Context, params repository.SearchParams, ttl time.Duration) (*repository.SearchResult, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	key := KeyFor(params)

	if s.cache != nil {
		payload, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var result repository.SearchResult
			if err := json.Unmarshal(payload, &result); err == nil {
				return &result, nil
			}
			s.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
		case !errors.Is(err, repository.ErrCacheMiss):
			s.logger.Warn("cache read failed, querying store directly", zap.Error(err))
		}
	}

	result, err := s.tasks.Search(ctx, normalize(params))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, payload, ttl); err != nil {
				s.logger.Warn("cache write failed", zap.Error(err))
			}
		}
	}
	return result, nil
}

// Invalidate drops a single cached query. Exposed for callers that know a
// specific result set went stale; routine task writes deliberately do not use it.
func (s *Service) Invalidate(ctx context.Context, params repository.SearchParams) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, KeyFor(params))
}

func normalize(params repository.SearchParams) repository.SearchParams {
	norm := params
	norm.Query = strings.TrimSpace(params.Query)
	norm.Tags = append([]string(nil), params.Tags...)
	sort.Strings(norm.Tags)
	if norm.Page <= 0 {
		norm.Page = 1
	}
	if norm.Size <= 0 || norm.Size > 100 {
		norm.Size = 10
	}
	if norm.SortBy == "" {
		norm.SortBy = "created_at"
	}
	if norm.SortOrder == "" {
		norm.SortOrder = "desc"
	}
	return norm
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
