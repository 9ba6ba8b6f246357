package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"globalchat/backend/internal/api/handler"
	"globalchat/backend/internal/auth"
	"globalchat/backend/internal/chathub"
	"globalchat/backend/internal/config"
	"globalchat/backend/internal/localization"
	"globalchat/backend/internal/models"
)

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
	return m.Called(ctx, recipientID, ids).Error(0)
}

func (m *MockStorage) ResolveHandle(ctx context.Context, handle string) (models.Identity, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(models.Identity), args.Error(1)
}

func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var (
	alice = models.Identity{ID: 1, Handle: "alice"}
	bob   = models.Identity{ID: 2, Handle: "bob"}
)

type testServer struct {
	engine *gin.Engine
	store  *MockStorage
	auth   *auth.Authenticator
	hub    *chathub.ManagerService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Sanitize(config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "globalchat-test",
		AllowedOrigins: "http://allowed.example",
	})

	localizer, err := localization.Default()
	require.NoError(t, err)

	store := new(MockStorage)
	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, time.Hour)
	registry := chathub.NewRegistry(log)
	router := chathub.NewRouter(registry, chathub.NewLocalBroadcaster(registry), store, store, localizer, log)
	hub := chathub.NewManagerService(registry, router, log)
	t.Cleanup(hub.Shutdown)

	engine := gin.New()
	handler.NewHandler(hub, authenticator, store, localizer, cfg, log).RegisterRoutes(engine)

	return &testServer{engine: engine, store: store, auth: authenticator, hub: hub}
}

func (s *testServer) token(t *testing.T, identity models.Identity) string {
	t.Helper()
	token, err := s.auth.GenerateToken(identity)
	require.NoError(t, err)
	return token
}

func (s *testServer) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
