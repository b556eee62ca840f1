package bot

import "fans3-backend/internal/domain/chat"

// Event is the closed set of inbound platform events the core consumes.
// Handlers construct exactly one variant per update and Dispatch consumes
// them with an exhaustive switch; nothing downstream inspects raw payloads.
type Event interface {
	isEvent()
}

// JoinRequestEvent is a pending request to join a gated chat.
type JoinRequestEvent struct {
	UserID   int64
	Username string
	Chat     chat.Info
	// UserChatID is the requester's private channel with the bot; decline
	// guidance and binding prompts go there.
	UserChatID int64
}

// AdminPromotionEvent fires when the bot's own membership in a chat changes
// or a group /start re-runs the registration flow.
type AdminPromotionEvent struct {
	Chat        chat.Info
	BotIsAdmin  bool
	ActorUserID int64
}

// AddressBindingMessage is a private-chat reply carrying an encoded signed
// claim to bind.
type AddressBindingMessage struct {
	UserID    int64
	Username  string
	ChatID    int64
	MessageID int
	Text      string
}

// OwnerAddressMessage is a group-chat reply carrying the owner's wallet
// address while registration awaits one.
type OwnerAddressMessage struct {
	Chat       chat.Info
	FromUserID int64
	MessageID  int
	Text       string
}

func (JoinRequestEvent) isEvent()      {}
func (AdminPromotionEvent) isEvent()   {}
func (AddressBindingMessage) isEvent() {}
func (OwnerAddressMessage) isEvent()   {}
