package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	conversationsDir = "conversations"
	indexFile        = "conversation_index.json"
	clearMarker      = ".clear-pending"
)

// Manager is the file-backed Store. Layout under its root:
//
//	conversations/<id>.json
//	conversation_index.json
type Manager struct {
	root      string
	convDir   string
	indexPath string

	idLocks sync.Map // id -> *sync.Mutex
	indexMu sync.Mutex

	ix     indexer
	now    func() time.Time
	logger zerolog.Logger
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger sets the store logger
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithSummaryTimeout bounds each summarization call
func WithSummaryTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.ix.timeout = d }
}

// NewManager opens (creating if needed) a store rooted at dir. A clear that
// was interrupted before completion is finished here.
func NewManager(dir string, summarizer Summarizer, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		root:      dir,
		convDir:   filepath.Join(dir, conversationsDir),
		indexPath: filepath.Join(dir, indexFile),
		ix:        indexer{summarizer: summarizer, timeout: DefaultSummaryTimeout},
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := os.MkdirAll(m.convDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}

	if _, err := os.Stat(m.markerPath()); err == nil {
		m.logger.Warn().Msg("resuming interrupted clear")
		if err := m.finishClear(); err != nil {
			return nil, fmt.Errorf("failed to resume clear: %w", err)
		}
	}

	return m, nil
}

// Load reads one conversation
func (m *Manager) Load(ctx context.Context, id string) (*Conversation, error) {
	data, err := os.ReadFile(m.recordPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Save writes a fresh record for id, then regenerates its index entry
func (m *Manager) Save(ctx context.Context, id string, messages []Message) error {
	return m.write(ctx, id, messages, false)
}

// Update rewrites the record keeping its creation time, then regenerates
// its index entry. A missing record is created.
func (m *Manager) Update(ctx context.Context, id string, messages []Message) error {
	return m.write(ctx, id, messages, true)
}

func (m *Manager) write(ctx context.Context, id string, messages []Message, keepCreated bool) error {
	if id == "" {
		return errors.New("conversation id is required")
	}

	unlock := m.lockID(id)
	defer unlock()

	now := m.now()
	conv := Conversation{ID: id, CreatedAt: now, UpdatedAt: now, Messages: messages}
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	if keepCreated {
		if prev, err := m.Load(ctx, id); err == nil {
			conv.CreatedAt = prev.CreatedAt
		}
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := writeFileAtomic(m.recordPath(id), data); err != nil {
		return fmt.Errorf("failed to write conversation %s: %w", id, err)
	}

	// The summary call is slow; keep it outside the index lock.
	entry := IndexEntry{
		ID:           id,
		Summary:      m.ix.summarize(ctx, conv.Messages),
		MessageCount: len(conv.Messages),
		LastUpdated:  now,
		Filename:     filepath.Join(conversationsDir, id+".json"),
	}

	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	index, err := m.readIndex()
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	if err := m.writeIndex(upsertEntry(index, entry)); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	m.logger.Debug().Str("conversation_id", id).Int("message_count", entry.MessageCount).Msg("conversation saved")
	return nil
}

// Delete removes the record and its index entry
func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock := m.lockID(id)
	defer unlock()

	err := os.Remove(m.recordPath(id))
	missingRecord := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missingRecord {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}

	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	index, err := m.readIndex()
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	index, hadEntry := removeEntry(index, id)
	if hadEntry {
		if err := m.writeIndex(index); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}
	}

	if missingRecord && !hadEntry {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ClearAll removes every record and the index. A marker file is written
// first so an interrupted clear is completed by the next NewManager.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	if err := writeFileAtomic(m.markerPath(), []byte(m.now().Format(time.RFC3339))); err != nil {
		return fmt.Errorf("failed to write clear marker: %w", err)
	}
	if err := m.finishClear(); err != nil {
		return err
	}
	m.logger.Info().Msg("conversation history cleared")
	return nil
}

func (m *Manager) finishClear() error {
	if err := os.RemoveAll(m.convDir); err != nil {
		return fmt.Errorf("failed to remove conversations: %w", err)
	}
	if err := os.Remove(m.indexPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove index: %w", err)
	}
	if err := os.MkdirAll(m.convDir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate conversations directory: %w", err)
	}
	if err := os.Remove(m.markerPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove clear marker: %w", err)
	}
	return nil
}

// Search matches summaries; it never returns an error
func (m *Manager) Search(ctx context.Context, query string) SearchResult {
	m.indexMu.Lock()
	index, err := m.readIndex()
	m.indexMu.Unlock()
	if err != nil {
		m.logger.Error().Err(err).Msg("search failed to read index")
		return SearchResult{Query: query, Status: SearchFailed, Err: err}
	}
	return searchIndex(index, query)
}

// List returns every index entry, newest first
func (m *Manager) List(ctx context.Context) ([]IndexEntry, error) {
	m.indexMu.Lock()
	index, err := m.readIndex()
	m.indexMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	sortNewestFirst(index)
	return index, nil
}

func (m *Manager) lockID(id string) func() {
	v, _ := m.idLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (m *Manager) recordPath(id string) string {
	return filepath.Join(m.convDir, filepath.Base(id)+".json")
}

func (m *Manager) markerPath() string {
	return filepath.Join(m.root, clearMarker)
}

// readIndex must be called with indexMu held. A missing index is empty.
func (m *Manager) readIndex() ([]IndexEntry, error) {
	data, err := os.ReadFile(m.indexPath)
	if errors.Is(err, fs.ErrNotExist) {
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

// writeIndex must be called with indexMu held
func (m *Manager) writeIndex(index []IndexEntry) error {
	if index == nil {
		index = []IndexEntry{}
	}
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(m.indexPath, data)
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
