// ABOUTME: JSON snapshot persistence for conversations with crash-tolerant writes
// ABOUTME: Loads once per process, saves via temp-file-and-rename, degrades instead of failing

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/chat-relay/internal/sentiment"
)

// FileStore holds the in-memory conversation index and persists it as a
// single JSON snapshot file. Persistence is best-effort: load and save
// failures are logged and absorbed, and the in-memory index stays
// authoritative for the rest of the process lifetime.
//
// Accessors hand out detached copies and all turn mutation goes through
// store methods under the store lock, so a snapshot write never races an
// append on another conversation. Ordering appends within one conversation
// is still the orchestrator's job.
type FileStore struct {
	mu            sync.Mutex
	path          string
	maxTurns      int
	logger        *slog.Logger
	conversations []*Conversation
}

// NewFileStore creates a store persisting to path, capping every
// conversation at maxTurns persisted turns. Pass nil logger for default.
func NewFileStore(path string, maxTurns int, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:     path,
		maxTurns: maxTurns,
		logger:   logger.With("component", "store"),
	}
}

// Load reads the snapshot file into the in-memory index. A missing file
// yields an empty index. An unreadable or unparsable file is moved aside to
// a timestamped backup path and the index starts empty; corruption is never
// surfaced to the caller. Every loaded conversation is truncated to the
// last maxTurns turns.
func (s *FileStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = nil

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("no conversation snapshot, starting empty", "path", s.path)
		return
	}
	if err != nil {
		s.logger.Error("failed to read conversation snapshot, starting empty",
			"path", s.path, "error", err)
		return
	}

	var conversations []*Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		backupPath := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().Unix())
		if renameErr := os.Rename(s.path, backupPath); renameErr != nil {
			s.logger.Error("failed to preserve corrupt snapshot",
				"path", s.path, "error", renameErr)
		} else {
			s.logger.Warn("corrupt conversation snapshot preserved, starting empty",
				"path", s.path, "backup", backupPath, "error", err)
		}
		return
	}

	for _, conv := range conversations {
		conv.truncateTurns(s.maxTurns)
	}
	s.conversations = conversations

	s.logger.Info("conversation snapshot loaded",
		"path", s.path, "conversations", len(conversations))
}

// Resolve returns a detached copy of the conversation with the given id, or
// synthesizes a new one (inserting it into the index) when the id is empty
// or unknown. The second return value reports whether a conversation was
// created.
func (s *FileStore) Resolve(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if conv := s.find(id); conv != nil {
			return conv.clone(), false
		}
	}

	conv := &Conversation{ID: id}
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	s.conversations = append(s.conversations, conv)

	s.logger.Debug("conversation created", "conversation_id", conv.ID)
	return conv.clone(), true
}

// AppendUserTurn records a user turn and its sentiment sample on the
// conversation with the given id. Unknown ids are ignored; Resolve inserts
// the record before any append can happen.
func (s *FileStore) AppendUserTurn(id, content string, sample sentiment.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(id)
	if conv == nil {
		s.logger.Warn("append to unknown conversation dropped", "conversation_id", id)
		return
	}
	conv.AppendUserTurn(content, sample)
}

// AppendAssistantTurn records an assistant turn on the conversation with the
// given id. Unknown ids are ignored.
func (s *FileStore) AppendAssistantTurn(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.find(id)
	if conv == nil {
		s.logger.Warn("append to unknown conversation dropped", "conversation_id", id)
		return
	}
	conv.AppendAssistantTurn(content)
}

// Get returns a detached copy of the conversation with the given id without
// creating one. Returns ErrNotFound when the id is unknown.
func (s *FileStore) Get(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv := s.find(id); conv != nil {
		return conv.clone(), nil
	}
	return nil, ErrNotFound
}

// List returns detached copies of all conversations in index order.
func (s *FileStore) List() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		out[i] = conv.clone()
	}
	return out
}

// find returns the live record for id. Caller must hold s.mu.
func (s *FileStore) find(id string) *Conversation {
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// Len returns the number of conversations in the index.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Save persists the full index, truncating every conversation to maxTurns
// first. The snapshot is written to a temporary file and atomically renamed
// over the previous one so a concurrent Load never observes a torn file. On
// write failure one fallback write to a timestamped backup path is
// attempted; if that also fails the error is logged and swallowed.
func (s *FileStore) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.conversations {
		conv.truncateTurns(s.maxTurns)
	}

	data, err := json.MarshalIndent(s.conversations, "", "  ")
	if err != nil {
		s.logger.Error("failed to marshal conversation snapshot", "error", err)
		return
	}

	err = s.writeAtomic(data)
	if err == nil {
		return
	}
	s.logger.Error("failed to write conversation snapshot", "path", s.path, "error", err)

	backupPath := fmt.Sprintf("%s.backup.%d", s.path, time.Now().Unix())
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		s.logger.Error("fallback snapshot write failed, state is in-memory only",
			"backup", backupPath, "error", err)
		return
	}
	s.logger.Warn("conversation snapshot written to fallback path", "backup", backupPath)
}

// writeAtomic writes data next to the snapshot path and renames it into place.
func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
