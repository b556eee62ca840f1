// Package service implements the group registration flow: the state machine
// that runs when the bot is promoted in a chat and that binds the owner's
// shareholder address before the chat becomes discoverable.
package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	apperrors "fans3-backend/internal/common/errors"
	"fans3-backend/internal/common/logger"
	"fans3-backend/internal/domain/chat"
	"fans3-backend/internal/features/registration/models"
	"fans3-backend/internal/store"
)

type Service struct {
	store     store.Store
	chain     SupplyReader
	transport Transport

	// awaiting marks chats whose owner has been prompted for an address.
	// Conversation-turn scratch only; never persisted, scoped per chat.
	mu       sync.Mutex
	awaiting map[int64]bool
}

func NewService(s store.Store, chain SupplyReader, transport Transport) *Service {
	return &Service{
		store:     s,
		chain:     chain,
		transport: transport,
		awaiting:  make(map[int64]bool),
	}
}

// HandlePromotion runs the flow after the bot's membership in a chat changed
// or the owner issued /start in the group.
func (s *Service) HandlePromotion(ctx context.Context, info chat.Info, botIsAdmin bool, actorUserID int64) (models.Result, error) {
	if !botIsAdmin {
		return models.Result{State: models.StateNotAdmin, Prompts: []models.Prompt{models.PromptPromoteBot}}, nil
	}

	var prompts []models.Prompt
	enabled, err := s.transport.MemberInvitesEnabled(ctx, info.ID)
	if err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "read chat permissions")
	}
	if enabled {
		// Once Ready, only the flow's own join-request link may admit
		// members; a member-created invite link would bypass the gate.
		if err := s.transport.DisableMemberInvites(ctx, info.ID); err != nil {
			return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "revoke member invites")
		}
		prompts = append(prompts, models.PromptInvitesDisabled)
	}

	_, bound, err := s.store.Get(ctx, store.ChatAddressKey(info.ID))
	if err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read chat address binding")
	}
	if !bound {
		role, err := s.transport.MemberRole(ctx, info.ID, actorUserID)
		if err != nil {
			return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "read member role")
		}
		if role != chat.RoleOwner {
			return models.Result{
				State:   models.StatePendingOwnerAddress,
				Prompts: append(prompts, models.PromptOwnerMustStart),
			}, nil
		}
		s.setAwaiting(info.ID, true)
		return models.Result{
			State:   models.StatePendingOwnerAddress,
			Prompts: append(prompts, models.PromptEnterAddress),
		}, nil
	}

	res, err := s.CheckFirstSale(ctx, info)
	if err != nil {
		return models.Result{}, err
	}
	res.Prompts = append(prompts, res.Prompts...)
	return res, nil
}

// HandleOwnerAddress consumes a group message while the chat awaits its
// shareholder address. handled is false when the chat is not awaiting one,
// in which case the message is not for this flow.
func (s *Service) HandleOwnerAddress(ctx context.Context, info chat.Info, fromUserID int64, text string) (models.Result, bool, error) {
	if !s.isAwaiting(info.ID) {
		return models.Result{}, false, nil
	}

	role, err := s.transport.MemberRole(ctx, info.ID, fromUserID)
	if err != nil {
		return models.Result{}, true, apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "read member role")
	}
	if role != chat.RoleOwner {
		return models.Result{
			State:   models.StatePendingOwnerAddress,
			Prompts: []models.Prompt{models.PromptOnlyOwner},
		}, true, nil
	}

	if !common.IsHexAddress(text) {
		return models.Result{
			State:   models.StatePendingOwnerAddress,
			Prompts: []models.Prompt{models.PromptInvalidAddress},
		}, true, nil
	}

	address := common.HexToAddress(text).Hex()
	s.setAwaiting(info.ID, false)
	if err := s.BindChatAddress(ctx, info.ID, address); err != nil {
		return models.Result{}, true, err
	}

	res, err := s.CheckFirstSale(ctx, info)
	return res, true, err
}

// BindChatAddress binds address to the chat as one logical operation:
// remove the chat from the previous address's holder set, then write the new
// binding and holder-set entry. Concurrent rebinds of the same chat resolve
// last-writer-wins; rebinding is an owner-only action and existing members
// are not re-audited.
func (s *Service) BindChatAddress(ctx context.Context, chatID int64, address string) error {
	old, bound, err := s.store.Get(ctx, store.ChatAddressKey(chatID))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read previous chat address")
	}
	if bound && old != address {
		if err := s.store.Delete(ctx, store.AddressChatKey(old, chatID)); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeStoreError, "prune previous holder-set entry")
		}
	}
	if err := s.store.Set(ctx, store.ChatAddressKey(chatID), address); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreError, "write chat address binding")
	}
	if err := s.store.Set(ctx, store.AddressChatKey(address, chatID), strconv.FormatInt(chatID, 10)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreError, "write holder-set entry")
	}

	logger.Info().
		Int64("chat_id", chatID).
		Str("address", address).
		Msg("Chat address bound")
	return nil
}

// CheckFirstSale finalizes registration once the bound address has nonzero
// share supply: it caches the chat descriptor and ensures a join-request
// invite link exists. Zero supply keeps the chat out of listings so nobody
// is pointed at a group they cannot qualify for yet.
func (s *Service) CheckFirstSale(ctx context.Context, info chat.Info) (models.Result, error) {
	address, bound, err := s.store.Get(ctx, store.ChatAddressKey(info.ID))
	if err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read chat address binding")
	}
	if !bound {
		return models.Result{}, apperrors.New(apperrors.ErrCodeConfigurationError, "first-sale check for chat without a bound address").
			WithDetail("chat_id", info.ID)
	}

	supply, err := s.chain.SharesSupply(ctx, common.HexToAddress(address))
	if err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeEntitlementUnavailable, "read share supply")
	}
	if supply.Sign() == 0 {
		return models.Result{
			State:   models.StatePendingFirstSale,
			Prompts: []models.Prompt{models.PromptBuyFirstShare},
			Address: address,
		}, nil
	}

	serialized, err := info.Marshal()
	if err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "serialize chat descriptor")
	}
	if err := s.store.Set(ctx, store.ChatInfoKey(info.ID), serialized); err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "cache chat descriptor")
	}
	if err := s.ensureInviteLink(ctx, info.ID); err != nil {
		return models.Result{}, err
	}

	logger.Info().
		Int64("chat_id", info.ID).
		Str("address", address).
		Msg("Chat registration complete")
	return models.Result{
		State:   models.StateReady,
		Prompts: []models.Prompt{models.PromptReady},
		Address: address,
	}, nil
}

func (s *Service) ensureInviteLink(ctx context.Context, chatID int64) error {
	_, ok, err := s.store.Get(ctx, store.ChatLinkKey(chatID))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read cached invite link")
	}
	if ok {
		return nil
	}
	link, err := s.transport.CreateJoinRequestLink(ctx, chatID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "create invite link")
	}
	if err := s.store.Set(ctx, store.ChatLinkKey(chatID), link); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreError, "cache invite link")
	}
	return nil
}

func (s *Service) setAwaiting(chatID int64, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.awaiting[chatID] = true
	} else {
		delete(s.awaiting, chatID)
	}
}

func (s *Service) isAwaiting(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting[chatID]
}
