package chathub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"globalchat/backend/internal/analysis"
	"globalchat/backend/internal/config"
	"globalchat/backend/internal/localization"
	"globalchat/backend/internal/models"
	"globalchat/backend/internal/storage"
)

// Router interprets inbound frames of an open session.
type Router struct {
	registry    *Registry
	broadcaster Broadcaster
	store       storage.PrivateMessageStore
	resolver    storage.IdentityResolver
	localizer   *localization.Localizer
	validate    *validator.Validate
	log         *slog.Logger
}

// NewRouter returns a Router that fans events out through broadcaster.
func NewRouter(
	registry *Registry,
	broadcaster Broadcaster,
	store storage.PrivateMessageStore,
	resolver storage.IdentityResolver,
	localizer *localization.Localizer,
	log *slog.Logger,
) *Router {
	return &Router{
		registry:    registry,
		broadcaster: broadcaster,
		store:       store,
		resolver:    resolver,
		localizer:   localizer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         log,
	}
}

// Route decodes raw and acts on it. Failures are logged and never surfaced
// to the sender.
func (r *Router) Route(ctx context.Context, s *Session, raw []byte) {
	switch cmd := Decode(raw, r.validate).(type) {
	case JoinPrivate:
		r.joinPrivate(ctx, s, cmd)
	case LeavePrivate:
		r.leavePrivate(ctx, s, cmd)
	case PrivateSend:
		r.sendPrivate(ctx, s, cmd)
	case GlobalSend:
		r.sendGlobal(ctx, s, cmd)
	case Malformed:
		r.log.Debug("Dropping malformed frame", "conn", s.client.ID(), "reason", cmd.Reason)
	}
}

func (r *Router) joinPrivate(ctx context.Context, s *Session, cmd JoinPrivate) {
	target, group, ok := r.pairWith(ctx, s, cmd.To)
	if !ok {
		return
	}
	r.registry.Join(group, s.client)
	r.notify(s, "joined_private", target.Handle)
}

func (r *Router) leavePrivate(ctx context.Context, s *Session, cmd LeavePrivate) {
	target, group, ok := r.pairWith(ctx, s, cmd.To)
	if !ok {
		return
	}
	r.registry.Leave(group, s.client)
	r.notify(s, "left_private", target.Handle)
}

func (r *Router) sendPrivate(ctx context.Context, s *Session, cmd PrivateSend) {
	target, group, ok := r.pairWith(ctx, s, cmd.To)
	if !ok {
		return
	}

	record, err := r.store.AppendPrivateMessage(ctx, s.identity.ID, target.ID, cmd.Message, cmd.ImageURL)
	if err != nil {
		r.log.Error("Failed to persist private message", "from", s.identity.Handle, "to", target.Handle, "error", err)
		return
	}

	recipient := target.Handle
	r.publish(ctx, group, models.ChatEvent{
		Message:         record.Content,
		ImageURL:        record.ImageURL,
		SenderHandle:    s.identity.Handle,
		IsPrivate:       true,
		RecipientHandle: &recipient,
		CreatedAt:       &record.CreatedAt,
		RecordID:        &record.ID,
	})
}

func (r *Router) sendGlobal(ctx context.Context, s *Session, cmd GlobalSend) {
	r.publish(ctx, config.GlobalGroup, models.ChatEvent{
		Message:      cmd.Message,
		ImageURL:     cmd.ImageURL,
		SenderHandle: s.identity.Handle,
		Mentions:     analysis.ExtractMentions(cmd.Message),
	})
}

// pairWith resolves handle and returns the target with the pair group it
// shares with the session. Unknown and self targets are no-ops.
func (r *Router) pairWith(ctx context.Context, s *Session, handle string) (models.Identity, string, bool) {
	target, err := r.resolver.ResolveHandle(ctx, handle)
	if err != nil {
		r.log.Debug("Target not resolved", "conn", s.client.ID(), "to", handle, "error", err)
		return models.Anonymous, "", false
	}

	group, err := PairGroup(s.identity.ID, target.ID)
	if err != nil {
		r.log.Warn("Ignoring private action targeting self", "user", s.identity.Handle)
		return models.Anonymous, "", false
	}
	return target, group, true
}

func (r *Router) notify(s *Session, key, handle string) {
	payload, err := json.Marshal(models.Notice{Info: r.localizer.Format(s.language, key, handle)})
	if err != nil {
		r.log.Error("Failed to encode notice", "error", err)
		return
	}
	if !s.client.Deliver(payload) {
		r.log.Debug("Notice dropped", "conn", s.client.ID())
	}
}

func (r *Router) publish(ctx context.Context, group string, event models.ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.log.Error("Failed to encode event", "group", group, "error", err)
		return
	}
	if err := r.broadcaster.Broadcast(ctx, group, payload); err != nil {
		r.log.Error("Failed to broadcast event", "group", group, "error", err)
	}
}
