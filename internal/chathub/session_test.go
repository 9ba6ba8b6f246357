package chathub_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"globalchat/backend/internal/chathub"
	"globalchat/backend/internal/config"
	"globalchat/backend/internal/models"
)

func TestSession_AnonymousIsRejected(t *testing.T) {
	hub := newTestHub(t)
	client := NewMockClient("anon")

	sess, err := hub.manager.Connect(client, models.Anonymous, "en")

	assert.ErrorIs(t, err, chathub.ErrAnonymous)
	assert.Equal(t, chathub.StateRejected, sess.State())
	assert.Empty(t, hub.registry.Groups(client))
	assert.Zero(t, hub.manager.ConnectionCount())
	assert.ErrorIs(t, sess.Handle(context.Background(), []byte(`{"message":"hi"}`)), chathub.ErrSessionClosed)
	assert.False(t, sess.Close())
	assert.Equal(t, chathub.StateRejected, sess.State())
}

func TestSession_AdmitJoinsGlobal(t *testing.T) {
	hub := newTestHub(t)

	sess, client := hub.connect(t, "c1", alice)

	assert.Equal(t, chathub.StateOpen, sess.State())
	assert.Equal(t, []string{config.GlobalGroup}, hub.registry.Groups(client))
	assert.Equal(t, alice, sess.Identity())
	assert.Equal(t, "en", sess.Language())
}

func TestSession_AdmitTwice(t *testing.T) {
	hub := newTestHub(t)
	sess, _ := hub.connect(t, "c1", alice)

	assert.ErrorIs(t, sess.Admit(), chathub.ErrInvalidTransition)
}

func TestSession_ClosePurgesEveryGroup(t *testing.T) {
	hub := newTestHub(t)
	hub.store.On("ResolveHandle", mock.Anything, "bob").Return(bob, nil)

	sess, client := hub.connect(t, "c1", alice)
	send(t, sess, `{"action":"join_private","to":"bob"}`)
	require.Len(t, hub.registry.Groups(client), 2)

	assert.True(t, sess.Close())
	assert.Equal(t, chathub.StateClosed, sess.State())
	assert.Empty(t, hub.registry.Groups(client))
	assert.Zero(t, hub.registry.Size("private_1_2"))

	assert.False(t, sess.Close())
	assert.ErrorIs(t, sess.Handle(context.Background(), []byte(`{"message":"late"}`)), chathub.ErrSessionClosed)
}

func TestSession_CloseRacingJoinLeavesNoMembership(t *testing.T) {
	hub := newTestHub(t)
	hub.store.On("ResolveHandle", mock.Anything, "bob").Return(bob, nil)

	var wg sync.WaitGroup
	var clients []*MockClient
	for i := 0; i < 20; i++ {
		sess, client := hub.connect(t, "c"+string(rune('a'+i)), alice)
		clients = append(clients, client)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = sess.Handle(context.Background(), []byte(`{"action":"join_private","to":"bob"}`))
			}
		}()
		go func() {
			defer wg.Done()
			hub.manager.Disconnect(sess)
		}()
	}
	wg.Wait()

	for _, c := range clients {
		assert.Empty(t, hub.registry.Groups(c))
	}
	assert.Zero(t, hub.registry.Size(config.GlobalGroup))
	assert.Zero(t, hub.registry.Size("private_1_2"))
	assert.Zero(t, hub.manager.ConnectionCount())
}
