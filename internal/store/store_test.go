package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/content"
	"github.com/rbraga/braga-ia/internal/db"
	"github.com/rbraga/braga-ia/internal/models"
)

const testKey = "braga-ia-history"

type fakeMedium struct {
	data     map[string][]byte
	readErr  error
	writeErr error
}

func newFakeMedium() *fakeMedium {
	return &fakeMedium{data: map[string][]byte{}}
}

func (m *fakeMedium) ReadSnapshot(key string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	value, ok := m.data[key]
	if !ok {
		return nil, db.ErrNoSnapshot
	}
	return value, nil
}

func (m *fakeMedium) WriteSnapshot(key string, value []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[key] = value
	return nil
}

func newTestStore(medium SnapshotMedium) *Store {
	return New(medium, testKey, content.NewCodec(), zap.NewNop())
}

func TestCreatePersistsAndReloads(t *testing.T) {
	medium := newFakeMedium()
	s := newTestStore(medium)

	id := s.CreateConversation(models.FunctionText, "Olá...")
	require.NotEmpty(t, id)
	require.True(t, s.AppendMessages(id,
		models.Message{ID: "u1", Role: models.RoleUser, RawContent: content.TextRaw("Olá")},
		models.Message{ID: "m1", Role: models.RoleModel, RawContent: content.TextRaw("Oi! Como posso ajudar?")},
	))

	reloaded := newTestStore(medium)
	reloaded.Load()

	conversations := reloaded.List()
	require.Len(t, conversations, 1)
	conv := conversations[0]
	assert.Equal(t, id, conv.ID)
	assert.Equal(t, "Olá...", conv.Title)
	assert.Equal(t, models.FunctionText, conv.FunctionType)
	require.Len(t, conv.Messages, 2)

	// Renderable content is recomputed on load, not read from the snapshot.
	require.NotNil(t, conv.Messages[1].Rendered)
	assert.Equal(t, models.ViewHTML, conv.Messages[1].Rendered.Kind)
	assert.Contains(t, conv.Messages[1].Rendered.HTML, "Como posso ajudar?")
}

func TestSnapshotOmitsRenderedContent(t *testing.T) {
	medium := newFakeMedium()
	s := newTestStore(medium)

	id := s.CreateConversation(models.FunctionText, "t")
	codec := content.NewCodec()
	msg := codec.Rehydrate(models.Message{ID: "u1", Role: models.RoleUser, RawContent: content.TextRaw("# big")})
	require.NotNil(t, msg.Rendered)
	s.AppendMessages(id, msg)

	assert.NotContains(t, string(medium.data[testKey]), `"html"`)
	assert.Contains(t, string(medium.data[testKey]), `"rawContent"`)
}

func TestLoadFreshMediumIsEmpty(t *testing.T) {
	// A conversation created against one medium never shows up when a
	// store loads from a different, untouched medium.
	s := newTestStore(newFakeMedium())
	s.CreateConversation(models.FunctionText, "Hello")

	fresh := newTestStore(newFakeMedium())
	fresh.Load()
	assert.Empty(t, fresh.List())
}

func TestLoadFailsOpen(t *testing.T) {
	t.Run("corrupt snapshot", func(t *testing.T) {
		medium := newFakeMedium()
		medium.data[testKey] = []byte("{not json")
		s := newTestStore(medium)
		s.Load()
		assert.Empty(t, s.List())
	})

	t.Run("null array entry", func(t *testing.T) {
		medium := newFakeMedium()
		medium.data[testKey] = []byte(`[null]`)
		s := newTestStore(medium)
		s.Load()
		assert.Empty(t, s.List())
	})

	t.Run("null entry among valid conversations", func(t *testing.T) {
		medium := newFakeMedium()
		medium.data[testKey] = []byte(`[null,{"id":"1","title":"t","functionType":"Texto","messages":[{"role":"user","rawContent":"oi"}]}]`)
		s := newTestStore(medium)
		s.Load()

		list := s.List()
		require.Len(t, list, 1)
		assert.Equal(t, "1", list[0].ID)
		require.Len(t, list[0].Messages, 1)
		require.NotNil(t, list[0].Messages[0].Rendered)
		assert.Contains(t, list[0].Messages[0].Rendered.HTML, "oi")
	})

	t.Run("read error", func(t *testing.T) {
		medium := newFakeMedium()
		medium.readErr = errors.New("disk on fire")
		s := newTestStore(medium)
		s.Load()
		assert.Empty(t, s.List())
	})
}

func TestWriteFailureKeepsInMemoryState(t *testing.T) {
	medium := newFakeMedium()
	medium.writeErr = errors.New("quota exceeded")
	s := newTestStore(medium)

	id := s.CreateConversation(models.FunctionText, "t")
	assert.True(t, s.AppendMessages(id, models.Message{Role: models.RoleUser, RawContent: content.TextRaw("oi")}))

	conv, ok := s.Get(id)
	require.True(t, ok)
	assert.Len(t, conv.Messages, 1)
	assert.Empty(t, medium.data)
}

func TestListOrderIsMostRecentlyCreatedFirst(t *testing.T) {
	s := newTestStore(newFakeMedium())

	first := s.CreateConversation(models.FunctionText, "first")
	second := s.CreateConversation(models.FunctionSlides, "second")

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)

	// Reading a conversation does not reorder the list.
	_, ok := s.Get(first)
	require.True(t, ok)
	assert.Equal(t, second, s.List()[0].ID)
}

func TestAppendToUnknownConversationIsNoop(t *testing.T) {
	medium := newFakeMedium()
	s := newTestStore(medium)
	s.CreateConversation(models.FunctionText, "t")
	before := string(medium.data[testKey])

	assert.False(t, s.AppendMessages("missing", models.Message{Role: models.RoleUser}))
	assert.Equal(t, before, string(medium.data[testKey]))
}

func TestRename(t *testing.T) {
	s := newTestStore(newFakeMedium())
	id := s.CreateConversation(models.FunctionText, "old")

	s.RenameConversation(id, "new")
	conv, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "new", conv.Title)

	// Unknown id is a no-op.
	s.RenameConversation("missing", "whatever")
}

func TestDelete(t *testing.T) {
	s := newTestStore(newFakeMedium())
	id := s.CreateConversation(models.FunctionText, "t")

	assert.True(t, s.DeleteConversation(id))
	assert.False(t, s.DeleteConversation(id))
	_, ok := s.Get(id)
	assert.False(t, ok)
}
