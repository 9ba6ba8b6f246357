package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"globalchat/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// lookupTimeout bounds a shared handle lookup.
const lookupTimeout = 5 * time.Second

const handleCachePrefix = "user:handle:"

// PrivateMessageStore is the durable, append-only record of private messages.
type PrivateMessageStore interface {
	AppendPrivateMessage(ctx context.Context, senderID, recipientID uint, content string, imageURL *string) (*models.PrivateMessage, error)
	GetPrivateHistory(ctx context.Context, userA, userB uint, limit int) ([]models.PrivateMessage, error)
	MarkRead(ctx context.Context, recipientID uint, ids []uint) error
}

// IdentityResolver maps a display handle onto a participant identity.
type IdentityResolver interface {
	ResolveHandle(ctx context.Context, handle string) (models.Identity, error)
}

type Storage interface {
	PrivateMessageStore
	IdentityResolver

	SaveUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	DB       *gorm.DB
	Redis    *redis.Client
	CacheTTL time.Duration

	log     *slog.Logger
	lookups singleflight.Group
}

// NewStorageService Constructor. rdb may be nil, which disables the handle cache.
func NewStorageService(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		DB:       db,
		Redis:    rdb,
		CacheTTL: cacheTTL,
		log:      log,
	}
}

// Migrate creates or updates the tables owned by this service.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&models.User{}, &models.PrivateMessage{})
}

// SaveUser inserts a new user row.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Create(user).Error
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return &user, nil
}

// ResolveHandle looks the handle up in Redis first, then in PostgreSQL.
// Concurrent lookups of the same handle share one database query. The shared
// query is detached from any single caller, so one caller giving up does not
// fail the others; each caller still returns as soon as its own ctx is done.
func (s *Service) ResolveHandle(ctx context.Context, handle string) (models.Identity, error) {
	if identity, ok := s.cachedIdentity(ctx, handle); ok {
		return identity, nil
	}

	ch := s.lookups.DoChan(handle, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		user, err := s.GetUserByUsername(lookupCtx, handle)
		if err != nil {
			return models.Identity{}, err
		}
		identity := user.Identity()
		s.cacheIdentity(lookupCtx, identity)
		return identity, nil
	})

	select {
	case <-ctx.Done():
		return models.Anonymous, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Anonymous, res.Err
		}
		return res.Val.(models.Identity), nil
	}
}

func (s *Service) cachedIdentity(ctx context.Context, handle string) (models.Identity, bool) {
	if s.Redis == nil {
		return models.Identity{}, false
	}

	raw, err := s.Redis.Get(ctx, handleCachePrefix+handle).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Identity{}, false
	}
	if err != nil {
		s.log.Warn("Handle cache read failed", "handle", handle, "error", err)
		return models.Identity{}, false
	}

	var identity models.Identity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.IsAnonymous() {
		return models.Identity{}, false
	}
	return identity, true
}

func (s *Service) cacheIdentity(ctx context.Context, identity models.Identity) {
	if s.Redis == nil {
		return
	}

	raw, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, handleCachePrefix+identity.Handle, raw, s.CacheTTL).Err(); err != nil {
		s.log.Warn("Handle cache write failed", "handle", identity.Handle, "error", err)
	}
}

// AppendPrivateMessage stores the message and returns it with its assigned ID and timestamp.
func (s *Service) AppendPrivateMessage(ctx context.Context, senderID, recipientID uint, content string, imageURL *string) (*models.PrivateMessage, error) {
	msg := &models.PrivateMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		ImageURL:    imageURL,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		s.log.Error("Failed to save private message", "sender", senderID, "recipient", recipientID, "error", err)
		return nil, fmt.Errorf("append private message: %w", err)
	}
	return msg, nil
}

// GetPrivateHistory returns the latest limit messages exchanged by the two users,
// oldest first.
func (s *Service) GetPrivateHistory(ctx context.Context, userA, userB uint, limit int) ([]models.PrivateMessage, error) {
	var history []models.PrivateMessage
	err := s.DB.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", userA, userB, userB, userA).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		s.log.Error("Failed to get private history", "user_a", userA, "user_b", userB, "error", err)
		return nil, fmt.Errorf("private history: %w", err)
	}

	slices.Reverse(history)
	return history, nil
}

// MarkRead sets the read flag on the given messages addressed to recipientID.
func (s *Service) MarkRead(ctx context.Context, recipientID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).
		Model(&models.PrivateMessage{}).
		Where("recipient_id = ? AND id IN ?", recipientID, ids).
		Update("read", true).Error
}
