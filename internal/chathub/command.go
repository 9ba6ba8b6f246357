package chathub

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"globalchat/backend/internal/models"
)

const (
	ActionJoinPrivate    = "join_private"
	ActionLeavePrivate   = "leave_private"
	ActionPrivateMessage = "private_message"
)

// Command is one decoded inbound frame.
type Command interface {
	command()
}

// JoinPrivate subscribes the sender to the pair group shared with To.
type JoinPrivate struct {
	To string `validate:"required,max=150"`
}

// LeavePrivate unsubscribes the sender from the pair group shared with To.
type LeavePrivate struct {
	To string `validate:"required,max=150"`
}

// PrivateSend persists a message to To and fans it out to their pair group.
type PrivateSend struct {
	To       string `validate:"required,max=150"`
	Message  string
	ImageURL *string `validate:"omitempty,max=2048"`
}

// GlobalSend fans a message out to the global group.
type GlobalSend struct {
	Message  string
	ImageURL *string `validate:"omitempty,max=2048"`
}

// Malformed is a frame that is dropped without a reply.
type Malformed struct {
	Reason string
}

func (JoinPrivate) command()  {}
func (LeavePrivate) command() {}
func (PrivateSend) command()  {}
func (GlobalSend) command()   {}
func (Malformed) command()    {}

// Decode parses raw into a Command. Unknown actions are treated as global
// messages; private:true without a join/leave action is a private message.
func Decode(raw []byte, validate *validator.Validate) Command {
	var f models.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Malformed{Reason: "invalid json: " + err.Error()}
	}

	to := strings.TrimSpace(f.To)
	image := f.ImageURL
	if image != nil && *image == "" {
		image = nil
	}

	switch kind := f.Kind(); {
	case kind == ActionJoinPrivate:
		return validated(validate, JoinPrivate{To: to})
	case kind == ActionLeavePrivate:
		return validated(validate, LeavePrivate{To: to})
	case kind == ActionPrivateMessage || f.Private:
		if f.Message == nil && image == nil {
			return Malformed{Reason: "private message without content"}
		}
		return validated(validate, PrivateSend{To: to, Message: deref(f.Message), ImageURL: image})
	default:
		if f.Message == nil && image == nil {
			return Malformed{Reason: "message without content"}
		}
		return validated(validate, GlobalSend{Message: deref(f.Message), ImageURL: image})
	}
}

func validated[T Command](validate *validator.Validate, cmd T) Command {
	if err := validate.Struct(cmd); err != nil {
		return Malformed{Reason: err.Error()}
	}
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
