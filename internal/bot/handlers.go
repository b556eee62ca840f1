package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	apperrors "fans3-backend/internal/common/errors"
	"fans3-backend/internal/common/logger"
	"fans3-backend/internal/domain/chat"
	accessmodels "fans3-backend/internal/features/access/models"
	listingmodels "fans3-backend/internal/features/listing/models"
	regmodels "fans3-backend/internal/features/registration/models"
)

const (
	claimPlaceholder   = "Paste the code here"
	addressPlaceholder = "Enter your wallet address"
)

// --- update-level handlers: convert telego updates into core events ---

func (b *Bot) handleJoinRequestUpdate(_ *telego.Bot, update telego.Update) {
	req := update.ChatJoinRequest
	b.Dispatch(context.Background(), JoinRequestEvent{
		UserID:     req.From.ID,
		Username:   req.From.Username,
		Chat:       chatInfoOf(req.Chat),
		UserChatID: req.UserChatID,
	})
}

func (b *Bot) handleMyChatMemberUpdate(_ *telego.Bot, update telego.Update) {
	upd := update.MyChatMember
	if upd.Chat.Type != telego.ChatTypeGroup && upd.Chat.Type != telego.ChatTypeSupergroup {
		return
	}
	status := upd.NewChatMember.MemberStatus()
	if status == telego.MemberStatusLeft || status == telego.MemberStatusBanned {
		logger.Info().Int64("chat_id", upd.Chat.ID).Msg("Bot removed from group")
		return
	}
	b.Dispatch(context.Background(), AdminPromotionEvent{
		Chat:        chatInfoOf(upd.Chat),
		BotIsAdmin:  status == telego.MemberStatusAdministrator,
		ActorUserID: upd.From.ID,
	})
}

func (b *Bot) handleReply(_ *telego.Bot, update telego.Update) {
	msg := update.Message
	switch msg.Chat.Type {
	case telego.ChatTypePrivate:
		b.Dispatch(context.Background(), AddressBindingMessage{
			UserID:    msg.From.ID,
			Username:  msg.From.Username,
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
		})
	case telego.ChatTypeGroup, telego.ChatTypeSupergroup:
		b.Dispatch(context.Background(), OwnerAddressMessage{
			Chat:       chatInfoOf(msg.Chat),
			FromUserID: msg.From.ID,
			MessageID:  msg.MessageID,
			Text:       strings.TrimSpace(msg.Text),
		})
	}
}

func (b *Bot) handleStart(_ *telego.Bot, update telego.Update) {
	msg := update.Message
	ctx := context.Background()
	if msg.Chat.Type == telego.ChatTypeGroup || msg.Chat.Type == telego.ChatTypeSupergroup {
		role, err := b.transport.MemberRole(ctx, msg.Chat.ID, b.botID)
		if err != nil {
			logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Cannot resolve own role")
			return
		}
		b.Dispatch(ctx, AdminPromotionEvent{
			Chat:        chatInfoOf(msg.Chat),
			BotIsAdmin:  role == chat.RoleAdmin,
			ActorUserID: msg.From.ID,
		})
		return
	}
	b.startPrivate(ctx, msg)
}

// --- core event handlers ---

func (b *Bot) handleJoinRequest(ctx context.Context, ev JoinRequestEvent) {
	decision, err := b.access.DecideJoin(ctx, ev.UserID, ev.Chat.ID)
	if err != nil {
		// Store failure: leave the request pending, it will be retried.
		logger.Error().Err(err).
			Int64("chat_id", ev.Chat.ID).
			Int64("user_id", ev.UserID).
			Msg("Join decision failed")
		return
	}

	switch decision.Outcome {
	case accessmodels.OutcomeApprove:
		if err := b.transport.ApproveJoinRequest(ctx, ev.Chat.ID, ev.UserID); err != nil {
			logger.Error().Err(err).Int64("chat_id", ev.Chat.ID).Msg("Approve failed")
		}

	case accessmodels.OutcomeRequireBinding:
		// The request stays pending until the user binds an address and
		// retries.
		b.sendParams(tu.Message(
			tu.ID(ev.UserChatID),
			fmt.Sprintf("You need a verified wallet address to join %s.", ev.Chat.Title),
		).WithReplyMarkup(tu.InlineKeyboard(tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Verify your address to continue").WithCallbackData(callbackStartVerifyAddress),
		))))

	case accessmodels.OutcomeDecline:
		switch decision.Reason {
		case accessmodels.ReasonInsufficientBalance:
			b.sendParams(tu.Message(
				tu.ID(ev.UserChatID),
				fmt.Sprintf(
					"Join group failed as you don't have a share, check your address or click [here](%s/tg/buy/%s) to buy a share",
					b.baseURL, decision.Shareholder,
				),
			).WithParseMode(telego.ModeMarkdown))
		case accessmodels.ReasonEntitlementUnavailable:
			b.send(ev.UserChatID, "Could not check your share right now, please try joining again later.")
		case accessmodels.ReasonConfigurationError:
			b.notifyDeveloper(fmt.Sprintf("Chat %d accepted a join request without a bound address", ev.Chat.ID))
		}
		if err := b.transport.DeclineJoinRequest(ctx, ev.Chat.ID, ev.UserID); err != nil {
			logger.Error().Err(err).Int64("chat_id", ev.Chat.ID).Msg("Decline failed")
		}
	}
}

func (b *Bot) handlePromotion(ctx context.Context, ev AdminPromotionEvent) {
	res, err := b.registration.HandlePromotion(ctx, ev.Chat, ev.BotIsAdmin, ev.ActorUserID)
	if err != nil {
		b.reportFlowError(ev.Chat.ID, err)
		return
	}
	b.renderRegistration(ev.Chat, res)
}

func (b *Bot) handleOwnerAddress(ctx context.Context, ev OwnerAddressMessage) {
	res, handled, err := b.registration.HandleOwnerAddress(ctx, ev.Chat, ev.FromUserID, ev.Text)
	if !handled {
		return
	}
	if err != nil {
		b.reportFlowError(ev.Chat.ID, err)
		return
	}
	b.renderRegistration(ev.Chat, res)
}

func (b *Bot) handleBinding(ctx context.Context, ev AddressBindingMessage) {
	address, err := b.binding.Bind(ctx, ev.UserID, ev.Username, strings.TrimSpace(ev.Text))
	if err != nil {
		b.renderBindingError(ev.ChatID, err)
		return
	}

	groups, lerr := b.listing.Holdings(ctx, address)
	if lerr != nil || len(groups) == 0 {
		if lerr != nil {
			logger.Warn().Err(lerr).Str("address", address).Msg("Holdings lookup failed after bind")
		}
		b.send(ev.ChatID, fmt.Sprintf("You are now %s but no group share found, use /start to create or join one", address))
		return
	}
	b.sendParams(tu.Message(
		tu.ID(ev.ChatID),
		fmt.Sprintf("You are now %s, here are your groups, click to join!\n\n%s", address, groupLines(groups)),
	).WithParseMode(telego.ModeMarkdown))
}

func (b *Bot) renderBindingError(chatID int64, err error) {
	var text string
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeMalformedClaim:
		text = "Bad code, please enter a valid one"
	case apperrors.ErrCodeClockSkew:
		text = "Code from future, check your time or try it later"
	case apperrors.ErrCodeClaimExpired:
		text = "Code expires, please try again"
	case apperrors.ErrCodeInvalidAddress:
		text = "Bad code, can not recover your address from code, please enter a valid one"
	default:
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Bind failed")
		b.send(chatID, "Sorry, something went wrong...")
		return
	}
	b.sendParams(tu.Message(tu.ID(chatID), text).
		WithReplyMarkup(&telego.ForceReply{ForceReply: true, InputFieldPlaceholder: claimPlaceholder}))
}

// renderRegistration turns a registration result into chat messages.
func (b *Bot) renderRegistration(info chat.Info, res regmodels.Result) {
	for _, prompt := range res.Prompts {
		switch prompt {
		case regmodels.PromptPromoteBot:
			b.send(info.ID, "Please promote me to admin to work.")
		case regmodels.PromptInvitesDisabled:
			b.send(info.ID, "Permission changed to disallow users to invite others.")
		case regmodels.PromptOwnerMustStart:
			b.send(info.ID, "Group owner needs to set group address with command /start.")
		case regmodels.PromptEnterAddress:
			b.sendParams(tu.Message(
				tu.ID(info.ID),
				"Now tell us your wallet address, so that anyone bought your share can join this group.",
			).WithReplyMarkup(&telego.ForceReply{ForceReply: true, InputFieldPlaceholder: addressPlaceholder}))
		case regmodels.PromptOnlyOwner:
			b.send(info.ID, "Only owner can do this.")
		case regmodels.PromptInvalidAddress:
			b.sendParams(tu.Message(
				tu.ID(info.ID),
				"That is not a valid address, please enter a valid one.",
			).WithReplyMarkup(&telego.ForceReply{ForceReply: true, InputFieldPlaceholder: addressPlaceholder}))
		case regmodels.PromptBuyFirstShare:
			b.sendParams(tu.Message(
				tu.ID(info.ID),
				"Now buy your first share to let others buy and join your group.",
			).WithReplyMarkup(tu.InlineKeyboard(
				tu.InlineKeyboardRow(
					tu.InlineKeyboardButton("Buy the first share").
						WithURL(fmt.Sprintf("%s/tg/create?tg=%s", b.baseURL, url.QueryEscape(fmt.Sprintf("%s(id: %d)", info.Title, info.ID)))),
				),
				tu.InlineKeyboardRow(
					tu.InlineKeyboardButton("I've bought the first share").
						WithCallbackData(callbackCheckFirstShare),
				),
			)))
		case regmodels.PromptReady:
			b.send(info.ID, fmt.Sprintf(
				"You are all set!\n\nNow your fans can buy your share at %s/tg/buy/%s to join your group!",
				b.baseURL, res.Address,
			))
		}
	}
}

// --- callback query handlers ---

func (b *Bot) handleStartVerifyAddress(_ *telego.Bot, update telego.Update) {
	q := update.CallbackQuery
	if q.Message == nil {
		return
	}
	chatID := q.Message.GetChat().ID
	verifyURL := fmt.Sprintf("%s/tg/verify/%s", b.baseURL,
		url.PathEscape(fmt.Sprintf("%s(%d)", q.From.Username, q.From.ID)))
	b.sendParams(tu.Message(
		tu.ID(chatID),
		fmt.Sprintf("[Click here](%s) to verify your address and then paste the code you got.", verifyURL),
	).WithParseMode(telego.ModeMarkdown).
		WithReplyMarkup(&telego.ForceReply{ForceReply: true, InputFieldPlaceholder: claimPlaceholder}))
	b.finishCallback(q)
}

func (b *Bot) handleCheckFirstShare(_ *telego.Bot, update telego.Update) {
	q := update.CallbackQuery
	if q.Message == nil {
		return
	}
	info := chatInfoOf(q.Message.GetChat())
	res, err := b.registration.CheckFirstSale(context.Background(), info)
	if err != nil {
		b.reportFlowError(info.ID, err)
	} else {
		b.renderRegistration(info, res)
	}
	b.finishCallback(q)
}

func (b *Bot) handleCreateGroup(_ *telego.Bot, update telego.Update) {
	q := update.CallbackQuery
	if q.Message != nil {
		b.send(q.Message.GetChat().ID, "Invite this bot to your group to turn it into a Fans3 group!")
	}
	b.finishCallback(q)
}

func (b *Bot) handleCancel(_ *telego.Bot, update telego.Update) {
	q := update.CallbackQuery
	if q.Message != nil {
		b.send(q.Message.GetChat().ID, "You can start with /start again at any time.")
	}
	b.finishCallback(q)
}

func (b *Bot) finishCallback(q *telego.CallbackQuery) {
	if err := b.api.AnswerCallbackQuery(&telego.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
		logger.Warn().Err(err).Msg("Answer callback failed")
	}
	if q.Message != nil {
		_, _ = b.api.EditMessageReplyMarkup(&telego.EditMessageReplyMarkupParams{
			ChatID:    tu.ID(q.Message.GetChat().ID),
			MessageID: q.Message.GetMessageID(),
		})
	}
}

// --- membership greetings ---

func (b *Bot) handleChatMemberUpdate(_ *telego.Bot, update telego.Update) {
	upd := update.ChatMember
	was, is := memberOf(upd.OldChatMember), memberOf(upd.NewChatMember)
	if was == is {
		return
	}
	name := upd.NewChatMember.MemberUser().FirstName
	if is {
		b.send(upd.Chat.ID, fmt.Sprintf("%s was added by %s. Welcome!", name, upd.From.FirstName))
	} else {
		b.send(upd.Chat.ID, fmt.Sprintf("%s is no longer with us. Thanks a lot, %s ...", name, upd.From.FirstName))
	}
}

func memberOf(m telego.ChatMember) bool {
	switch m.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator, telego.MemberStatusMember:
		return true
	case telego.MemberStatusRestricted:
		if r, ok := m.(*telego.ChatMemberRestricted); ok {
			return r.IsMember
		}
	}
	return false
}

// --- private /start menu ---

func (b *Bot) startPrivate(ctx context.Context, msg *telego.Message) {
	placeholder, err := b.api.SendMessage(tu.Message(tu.ID(msg.Chat.ID), "A moment please..."))
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Cannot send menu placeholder")
		return
	}

	address, bound, err := b.binding.Address(ctx, msg.From.ID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("Address lookup failed")
		bound = false
	}

	var text string
	if bound {
		if groups, err := b.listing.Holdings(ctx, address); err == nil && len(groups) > 0 {
			text += "\nGroups that you can join:\n" + groupLines(groups)
		} else if err != nil {
			logger.Warn().Err(err).Str("address", address).Msg("Holdings lookup failed")
		}
	}

	if known, err := b.listing.KnownGroups(ctx); err == nil && len(known) > 0 {
		var sb strings.Builder
		for _, g := range known {
			fmt.Fprintf(&sb, "[%s](%s/tg/buy/%s) (`%s ETH` `%s`)\n", g.Title, b.baseURL, g.Address, g.PriceEther(), g.Address)
		}
		text += "\nKnown groups: (click and buy a share to join)\n" + sb.String()
	} else if err != nil {
		logger.Warn().Err(err).Msg("Known groups lookup failed")
	}

	var rows [][]telego.InlineKeyboardButton
	if bound {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(fmt.Sprintf("Change your wallet address(%s)", address)).
				WithCallbackData(callbackStartVerifyAddress),
		))
	} else if text != "" {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Verify address and list groups that you can join").
				WithCallbackData(callbackStartVerifyAddress),
		))
	}
	rows = append(rows,
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Create a group").WithCallbackData(callbackCreateGroup)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Cancel").WithCallbackData(callbackCancel)),
	)

	if text != "" {
		text = "Thanks for choosing Fans3, join or create your own group!\n" + text
	} else {
		text = "Thanks for choosing Fans3, no known group yet, let's create the first group!"
	}

	_, err = b.api.EditMessageText(&telego.EditMessageTextParams{
		ChatID:      tu.ID(msg.Chat.ID),
		MessageID:   placeholder.MessageID,
		Text:        text,
		ParseMode:   telego.ModeMarkdown,
		ReplyMarkup: tu.InlineKeyboard(rows...),
	})
	if err != nil {
		logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Cannot render menu")
	}
}

func groupLines(groups []listingmodels.Group) string {
	var sb strings.Builder
	for _, g := range groups {
		link := g.InviteLink
		if link == "" {
			link = "#"
		}
		fmt.Fprintf(&sb, "[%s](%s)(%s)\n", g.Title, link, g.Address)
	}
	return sb.String()
}

// --- shared helpers ---

func (b *Bot) send(chatID int64, text string) {
	b.sendParams(tu.Message(tu.ID(chatID), text))
}

func (b *Bot) sendParams(params *telego.SendMessageParams) {
	if _, err := b.api.SendMessage(params); err != nil {
		logger.Error().Err(err).Int64("chat_id", params.ChatID.ID).Msg("Send message failed")
	}
}

func (b *Bot) reportFlowError(chatID int64, err error) {
	logger.Error().Err(err).Int64("chat_id", chatID).Msg("Registration step failed")
	if apperrors.IsCode(err, apperrors.ErrCodeEntitlementUnavailable) {
		b.send(chatID, "Could not reach the chain right now, please try again later.")
		return
	}
	b.send(chatID, "Sorry, something went wrong...")
	b.notifyDeveloper(fmt.Sprintf("Registration failure in chat %d: %v", chatID, err))
}

func (b *Bot) notifyDeveloper(text string) {
	if b.devChatID == 0 {
		return
	}
	b.send(b.devChatID, text)
}
