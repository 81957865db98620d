// Package store owns the in-memory conversation list and its persisted
// mirror. Every mutation rewrites the full history snapshot; history is
// assumed small enough that batching is not worth the staleness risk.
package store

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/content"
	"github.com/rbraga/braga-ia/internal/db"
	"github.com/rbraga/braga-ia/internal/models"
)

// SnapshotMedium is the key/value storage the history snapshot lives in.
type SnapshotMedium interface {
	ReadSnapshot(key string) ([]byte, error)
	WriteSnapshot(key string, value []byte) error
}

type Store struct {
	mu            sync.Mutex
	medium        SnapshotMedium
	key           string
	codec         *content.Codec
	logger        *zap.Logger
	conversations []*models.Conversation
	now           func() time.Time
}

func New(medium SnapshotMedium, key string, codec *content.Codec, logger *zap.Logger) *Store {
	return &Store{
		medium: medium,
		key:    key,
		codec:  codec,
		logger: logger,
		now:    time.Now,
	}
}

// Load reads the persisted snapshot and rehydrates every message. Any read
// or parse failure leaves the list empty; losing history is preferable to
// refusing to start.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = nil

	data, err := s.medium.ReadSnapshot(s.key)
	if errors.Is(err, db.ErrNoSnapshot) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load history snapshot", zap.Error(err))
		return
	}

	var persisted []*models.Conversation
	if err := json.Unmarshal(data, &persisted); err != nil {
		s.logger.Warn("failed to parse history snapshot", zap.Error(err))
		return
	}

	loaded := make([]*models.Conversation, 0, len(persisted))
	for _, conv := range persisted {
		if conv == nil {
			// A null array entry is valid JSON; drop it rather than
			// refuse the rest of the history.
			s.logger.Warn("skipping degenerate history snapshot entry")
			continue
		}
		for i, msg := range conv.Messages {
			conv.Messages[i] = s.codec.Rehydrate(msg)
		}
		loaded = append(loaded, conv)
	}
	s.conversations = loaded
}

// persistLocked writes the full dehydrated snapshot. Write failures are
// logged and otherwise ignored; the previous snapshot stays in place.
func (s *Store) persistLocked() {
	snapshot := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		persisted := models.Conversation{
			ID:           conv.ID,
			Title:        conv.Title,
			FunctionType: conv.FunctionType,
			Messages:     make([]models.Message, len(conv.Messages)),
		}
		for i, msg := range conv.Messages {
			persisted.Messages[i] = content.Dehydrate(msg)
		}
		snapshot = append(snapshot, persisted)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("failed to serialize history snapshot", zap.Error(err))
		return
	}
	if err := s.medium.WriteSnapshot(s.key, data); err != nil {
		s.logger.Warn("failed to write history snapshot", zap.Error(err))
	}
}

// CreateConversation prepends a new conversation and returns its id. Ids
// are time-based; the list stays most-recently-created first.
func (s *Store) CreateConversation(functionType models.FunctionType, title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &models.Conversation{
		ID:           strconv.FormatInt(s.now().UnixNano(), 10),
		Title:        title,
		FunctionType: functionType,
	}
	s.conversations = append([]*models.Conversation{conv}, s.conversations...)
	s.persistLocked()
	return conv.ID
}

// AppendMessages appends messages to a conversation in order. An unknown id
// is a no-op, which is exactly what happens when a generation result lands
// after its conversation was deleted.
func (s *Store) AppendMessages(id string, msgs ...models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return false
	}
	conv.Messages = append(conv.Messages, msgs...)
	s.persistLocked()
	return true
}

// RenameConversation sets a conversation title. Unknown ids are a no-op.
func (s *Store) RenameConversation(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return
	}
	conv.Title = title
	s.persistLocked()
}

// DeleteConversation removes a conversation and reports whether it existed,
// so the caller can clear its active selection.
func (s *Store) DeleteConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, conv := range s.conversations {
		if conv.ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			s.persistLocked()
			return true
		}
	}
	return false
}

// Get returns a copy of a conversation. Selection never reorders the list.
func (s *Store) Get(id string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return models.Conversation{}, false
	}
	return copyConversation(conv), true
}

// List returns copies of all conversations in list order.
func (s *Store) List() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, copyConversation(conv))
	}
	return out
}

func (s *Store) findLocked(id string) *models.Conversation {
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func copyConversation(conv *models.Conversation) models.Conversation {
	out := *conv
	out.Messages = make([]models.Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return out
}
