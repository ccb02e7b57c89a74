package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxIndexRetries bounds optimistic-lock retries on the index key
const maxIndexRetries = 16

// RedisStore keeps records and the index in Redis. Records live at
// <prefix>:conversation:<id>; the index is one JSON array at
// <prefix>:conversation_index updated under WATCH/MULTI.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ix     indexer
	now    func() time.Time
	logger zerolog.Logger
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithRedisLogger sets the store logger
func WithRedisLogger(l zerolog.Logger) RedisOption {
	return func(s *RedisStore) { s.logger = l }
}

// WithRedisClock overrides time.Now, for tests
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) { s.now = now }
}

// NewRedisStore wraps a connected client
func NewRedisStore(rdb redis.UniversalClient, prefix string, summarizer Summarizer, opts ...RedisOption) *RedisStore {
	if prefix == "" {
		prefix = "gert"
	}
	s := &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		ix:     indexer{summarizer: summarizer, timeout: DefaultSummaryTimeout},
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) recordKey(id string) string {
	return fmt.Sprintf("%s:conversation:%s", s.prefix, id)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":conversation_index"
}

// Load reads one conversation
func (s *RedisStore) Load(ctx context.Context, id string) (*Conversation, error) {
	data, err := s.rdb.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Save writes a fresh record and regenerates its index entry
func (s *RedisStore) Save(ctx context.Context, id string, messages []Message) error {
	return s.write(ctx, id, messages, false)
}

// Update rewrites the record keeping its creation time
func (s *RedisStore) Update(ctx context.Context, id string, messages []Message) error {
	return s.write(ctx, id, messages, true)
}

func (s *RedisStore) write(ctx context.Context, id string, messages []Message, keepCreated bool) error {
	if id == "" {
		return errors.New("conversation id is required")
	}

	now := s.now()
	conv := Conversation{ID: id, CreatedAt: now, UpdatedAt: now, Messages: messages}
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	if keepCreated {
		if prev, err := s.Load(ctx, id); err == nil {
			conv.CreatedAt = prev.CreatedAt
		}
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := s.rdb.Set(ctx, s.recordKey(id), data, 0).Err(); err != nil {
		s.logger.Error().Err(err).Str("conversation_id", id).Msg("failed to write conversation to redis")
		return fmt.Errorf("redis set %s: %w", id, err)
	}

	entry := IndexEntry{
		ID:           id,
		Summary:      s.ix.summarize(ctx, conv.Messages),
		MessageCount: len(conv.Messages),
		LastUpdated:  now,
		Filename:     s.recordKey(id),
	}
	return s.mutateIndex(ctx, func(index []IndexEntry) ([]IndexEntry, error) {
		return upsertEntry(index, entry), nil
	})
}

// mutateIndex applies fn to the index under optimistic locking
func (s *RedisStore) mutateIndex(ctx context.Context, fn func([]IndexEntry) ([]IndexEntry, error)) error {
	key := s.indexKey()
	txf := func(tx *redis.Tx) error {
		index, err := readRedisIndex(ctx, tx, key)
		if err != nil {
			return err
		}
		index, err = fn(index)
		if err != nil {
			return err
		}
		data, err := json.Marshal(index)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxIndexRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to update index: %w", err)
	}
	return fmt.Errorf("failed to update index: %w", redis.TxFailedErr)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRedisIndex(ctx context.Context, c getter, key string) ([]IndexEntry, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []IndexEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var index []IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

// Delete removes the record and its index entry
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	removed, err := s.rdb.Del(ctx, s.recordKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}

	hadEntry := false
	err = s.mutateIndex(ctx, func(index []IndexEntry) ([]IndexEntry, error) {
		var out []IndexEntry
		out, hadEntry = removeEntry(index, id)
		return out, nil
	})
	if err != nil {
		return err
	}

	if removed == 0 && !hadEntry {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ClearAll deletes every record key and the index in one transaction
func (s *RedisStore) ClearAll(ctx context.Context) error {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+":conversation:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, s.indexKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	s.logger.Info().Int("records", len(keys)).Msg("conversation history cleared")
	return nil
}

// Search matches summaries; it never returns an error
func (s *RedisStore) Search(ctx context.Context, query string) SearchResult {
	index, err := readRedisIndex(ctx, s.rdb, s.indexKey())
	if err != nil {
		s.logger.Error().Err(err).Msg("search failed to read index")
		return SearchResult{Query: query, Status: SearchFailed, Err: err}
	}
	return searchIndex(index, query)
}

// List returns every index entry, newest first
func (s *RedisStore) List(ctx context.Context) ([]IndexEntry, error) {
	index, err := readRedisIndex(ctx, s.rdb, s.indexKey())
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	sortNewestFirst(index)
	return index, nil
}
