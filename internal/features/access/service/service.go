// Package service implements the access decision engine: given a pending
// join request it resolves the chat's shareholder address, reads the
// requester's share balance on chain and emits an approve/decline decision.
package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	apperrors "fans3-backend/internal/common/errors"
	"fans3-backend/internal/common/logger"
	"fans3-backend/internal/features/access/models"
	"fans3-backend/internal/store"
)

type Service struct {
	store store.Store
	chain BalanceReader
}

func NewService(s store.Store, chain BalanceReader) *Service {
	return &Service{store: s, chain: chain}
}

// DecideJoin evaluates a pending join request. It is idempotent for
// unchanged on-chain state, performs no on-chain writes, and fails closed:
// an entitlement read failure declines, never approves. The returned error
// is non-nil only for store I/O failures, in which case the caller should
// leave the request pending and retry later.
func (s *Service) DecideJoin(ctx context.Context, userID, chatID int64) (models.Decision, error) {
	address, ok, err := s.store.Get(ctx, store.UserAddressKey(userID))
	if err != nil {
		return models.Decision{}, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read user address binding")
	}
	if !ok {
		return models.RequireBinding(), nil
	}

	shareholder, ok, err := s.store.Get(ctx, store.ChatAddressKey(chatID))
	if err != nil {
		return models.Decision{}, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read chat address binding")
	}
	if !ok {
		// A registered chat always has a bound address; a join request for a
		// chat without one means registration never completed.
		logger.Error().
			Int64("chat_id", chatID).
			Msg("Join request for chat without a bound address")
		return models.Decline(models.ReasonConfigurationError, "", address), nil
	}

	balance, err := s.chain.SharesBalance(ctx, common.HexToAddress(shareholder), common.HexToAddress(address))
	if err != nil {
		logger.Warn().
			Err(err).
			Int64("chat_id", chatID).
			Int64("user_id", userID).
			Msg("Entitlement read failed, declining")
		return models.Decline(models.ReasonEntitlementUnavailable, shareholder, address), nil
	}

	if balance.Sign() > 0 {
		return models.Approve(shareholder, address), nil
	}
	return models.Decline(models.ReasonInsufficientBalance, shareholder, address), nil
}
