package chathub_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"globalchat/backend/internal/chathub"
	"globalchat/backend/internal/localization"
	"globalchat/backend/internal/models"
)

// MockStorage is a testify mock of both the private message store and the
// handle resolver.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AppendPrivateMessage(ctx context.Context, senderID, recipientID uint, content string, imageURL *string) (*models.PrivateMessage, error) {
	args := m.Called(ctx, senderID, recipientID, content, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PrivateMessage), args.Error(1)
}

func (m *MockStorage) GetPrivateHistory(ctx context.Context, userA, userB uint, limit int) ([]models.PrivateMessage, error) {
	args := m.Called(ctx, userA, userB, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PrivateMessage), args.Error(1)
}

func (m *MockStorage) MarkRead(ctx context.Context, recipientID uint, ids []uint) error {
	args := m.Called(ctx, recipientID, ids)
	return args.Error(0)
}

func (m *MockStorage) ResolveHandle(ctx context.Context, handle string) (models.Identity, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(models.Identity), args.Error(1)
}

// MockClient records every payload delivered to it.
type MockClient struct {
	id string

	mu       sync.Mutex
	payloads [][]byte
	closed   bool
	refuse   bool
}

func NewMockClient(id string) *MockClient {
	return &MockClient{id: id}
}

func (c *MockClient) ID() string { return c.id }

func (c *MockClient) Deliver(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.refuse {
		return false
	}
	c.payloads = append(c.payloads, payload)
	return true
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockClient) Payloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.payloads))
	copy(out, c.payloads)
	return out
}

// Frames decodes every received payload into a generic JSON object.
func (c *MockClient) Frames(t *testing.T) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for _, p := range c.Payloads() {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(p, &frame))
		frames = append(frames, frame)
	}
	return frames
}

var (
	alice = models.Identity{ID: 1, Handle: "alice"}
	bob   = models.Identity{ID: 2, Handle: "bob"}
	carol = models.Identity{ID: 3, Handle: "carol"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testHub struct {
	registry *chathub.Registry
	store    *MockStorage
	manager  *chathub.ManagerService
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()

	localizer, err := localization.Default()
	require.NoError(t, err)

	log := discardLogger()
	registry := chathub.NewRegistry(log)
	store := new(MockStorage)
	router := chathub.NewRouter(registry, chathub.NewLocalBroadcaster(registry), store, store, localizer, log)

	return &testHub{
		registry: registry,
		store:    store,
		manager:  chathub.NewManagerService(registry, router, log),
	}
}

// connect admits a new mock connection for identity.
func (h *testHub) connect(t *testing.T, id string, identity models.Identity) (*chathub.Session, *MockClient) {
	t.Helper()
	client := NewMockClient(id)
	sess, err := h.manager.Connect(client, identity, "en")
	require.NoError(t, err)
	return sess, client
}

// send routes a JSON frame through sess.
func send(t *testing.T, sess *chathub.Session, frame string) {
	t.Helper()
	require.NoError(t, sess.Handle(context.Background(), []byte(frame)))
}
