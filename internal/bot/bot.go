// Package bot routes Telegram updates into the gating core: join requests
// to the access engine, membership changes to the registration flow, and
// signed claims to the binding protocol. Each update is one isolated unit of
// work; a failure in one never affects another chat's processing.
package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"fans3-backend/internal/common/logger"
	"fans3-backend/internal/domain/chat"
	accesssvc "fans3-backend/internal/features/access/service"
	bindingsvc "fans3-backend/internal/features/binding/service"
	listingsvc "fans3-backend/internal/features/listing/service"
	regsvc "fans3-backend/internal/features/registration/service"
	"fans3-backend/internal/platform/telegram"
)

// Callback data values for the inline menu buttons.
const (
	callbackCheckFirstShare    = "check_first_share"
	callbackStartVerifyAddress = "start_verify_address"
	callbackCreateGroup        = "create_group"
	callbackCancel             = "CANCEL"
)

type Bot struct {
	api       *telego.Bot
	botID     int64
	transport *telegram.Client

	binding      *bindingsvc.Service
	access       *accesssvc.Service
	registration *regsvc.Service
	listing      *listingsvc.Service

	baseURL   string
	devChatID int64
}

func New(
	api *telego.Bot,
	transport *telegram.Client,
	binding *bindingsvc.Service,
	access *accesssvc.Service,
	registration *regsvc.Service,
	listing *listingsvc.Service,
	baseURL string,
	devChatID int64,
) *Bot {
	return &Bot{
		api:          api,
		transport:    transport,
		binding:      binding,
		access:       access,
		registration: registration,
		listing:      listing,
		baseURL:      baseURL,
		devChatID:    devChatID,
	}
}

// Run starts long polling and blocks until the update channel closes.
func (b *Bot) Run() error {
	me, err := b.api.GetMe()
	if err != nil {
		return fmt.Errorf("get bot identity: %w", err)
	}
	b.botID = me.ID
	logger.Info().
		Int64("id", me.ID).
		Str("username", me.Username).
		Msg("Bot identity resolved")

	updates, err := b.api.UpdatesViaLongPolling(nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	bh, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		return fmt.Errorf("init bot handler: %w", err)
	}
	defer bh.Stop()
	defer b.api.StopLongPolling()

	bh.Handle(b.isolate(b.handleJoinRequestUpdate), anyJoinRequest)
	bh.Handle(b.isolate(b.handleMyChatMemberUpdate), anyMyChatMember)
	bh.Handle(b.isolate(b.handleChatMemberUpdate), anyChatMember)
	bh.Handle(b.isolate(b.handleStart), th.CommandEqual("start"))
	bh.Handle(b.isolate(b.handleCheckFirstShare), callbackEqual(callbackCheckFirstShare))
	bh.Handle(b.isolate(b.handleStartVerifyAddress), callbackEqual(callbackStartVerifyAddress))
	bh.Handle(b.isolate(b.handleCreateGroup), callbackEqual(callbackCreateGroup))
	bh.Handle(b.isolate(b.handleCancel), callbackEqual(callbackCancel))
	bh.Handle(b.isolate(b.handleReply), replyMessage)

	bh.Start()
	return nil
}

// Dispatch consumes one core event. The switch is exhaustive over the Event
// variants; adding a variant without a case here is a compile-time dead end
// caught by the default panic in tests.
func (b *Bot) Dispatch(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case JoinRequestEvent:
		b.handleJoinRequest(ctx, ev)
	case AdminPromotionEvent:
		b.handlePromotion(ctx, ev)
	case AddressBindingMessage:
		b.handleBinding(ctx, ev)
	case OwnerAddressMessage:
		b.handleOwnerAddress(ctx, ev)
	default:
		panic(fmt.Sprintf("unhandled event type %T", ev))
	}
}

// isolate wraps a handler so a panic or stray error in one update cannot
// take down the polling loop; the failure is logged and reported to the
// developer chat when one is configured.
func (b *Bot) isolate(handler th.Handler) th.Handler {
	return func(bot *telego.Bot, update telego.Update) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Int("update_id", update.UpdateID).
					Msg("Update handler panicked")
				b.notifyDeveloper(fmt.Sprintf("Update %d panicked: %v", update.UpdateID, r))
				if c := updateChatID(update); c != 0 {
					b.send(c, "Sorry, something went wrong...")
				}
			}
		}()
		handler(bot, update)
	}
}

func updateChatID(update telego.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.GetChat().ID
	}
	return 0
}

func chatInfoOf(c telego.Chat) chat.Info {
	return chat.Info{ID: c.ID, Type: c.Type, Title: c.Title}
}

// Update predicates. telegohandler matches handlers in registration order;
// these keep each update type on exactly one path.

func anyJoinRequest(update telego.Update) bool {
	return update.ChatJoinRequest != nil
}

func anyMyChatMember(update telego.Update) bool {
	return update.MyChatMember != nil
}

func anyChatMember(update telego.Update) bool {
	return update.ChatMember != nil
}

func replyMessage(update telego.Update) bool {
	return update.Message != nil && update.Message.ReplyToMessage != nil
}

func callbackEqual(data string) th.Predicate {
	return func(update telego.Update) bool {
		return update.CallbackQuery != nil && update.CallbackQuery.Data == data
	}
}
