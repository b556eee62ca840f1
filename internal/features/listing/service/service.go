// Package service builds the group listings: the chats a holder's address
// qualifies for, and the full set of known registered chats with prices.
package service

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	apperrors "fans3-backend/internal/common/errors"
	"fans3-backend/internal/common/logger"
	"fans3-backend/internal/domain/chat"
	"fans3-backend/internal/features/listing/models"
	"fans3-backend/internal/store"
)

type Service struct {
	store store.Store
	chain ChainReader
	links LinkCreator
}

func NewService(s store.Store, chain ChainReader, links LinkCreator) *Service {
	return &Service{store: s, chain: chain, links: links}
}

// Holdings returns the registered chats the given address holds a share in.
// Holder-set entries whose chat no longer binds the subject address are
// skipped; rebinds prune eagerly, so such entries only occur in data written
// before pruning existed.
func (s *Service) Holdings(ctx context.Context, address string) ([]models.Group, error) {
	subjects, err := s.chain.Holdings(ctx, common.HexToAddress(address))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeEntitlementUnavailable, "read holdings")
	}

	var groups []models.Group
	for _, subject := range subjects {
		subjectHex := subject.Hex()
		err := store.ScanPrefix(ctx, s.store, store.AddressChatsPrefix(subjectHex), func(key, value string) (bool, error) {
			chatID, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				logger.Warn().Str("key", key).Str("value", value).Msg("Malformed holder-set entry")
				return true, nil
			}
			bound, ok, err := s.store.Get(ctx, store.ChatAddressKey(chatID))
			if err != nil {
				return false, err
			}
			if !ok || bound != subjectHex {
				return true, nil
			}
			group, err := s.resolveGroup(ctx, chatID, subjectHex)
			if err != nil {
				return false, err
			}
			groups = append(groups, group)
			return true, nil
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "scan holder set")
		}
	}
	return groups, nil
}

// KnownGroups enumerates every registered chat with its current one-share
// buy price. Prices are informational; a failed price read leaves the group
// listed without one.
func (s *Service) KnownGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := store.ScanPrefix(ctx, s.store, store.PrefixChatInfo, func(key, value string) (bool, error) {
		info, err := chat.UnmarshalInfo(value)
		if err != nil {
			logger.Warn().Str("key", key).Msg("Malformed cached chat descriptor")
			return true, nil
		}
		address, ok, err := s.store.Get(ctx, store.ChatAddressKey(info.ID))
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		group := models.Group{ChatID: info.ID, Title: info.Title, Address: address}
		price, err := s.chain.BuyPrice(ctx, common.HexToAddress(address), big.NewInt(1))
		if err != nil {
			logger.Warn().Err(err).Int64("chat_id", info.ID).Msg("Buy price read failed")
		} else {
			group.PriceWei = price
		}
		groups = append(groups, group)
		return true, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "scan known groups")
	}
	return groups, nil
}

func (s *Service) resolveGroup(ctx context.Context, chatID int64, address string) (models.Group, error) {
	group := models.Group{ChatID: chatID, Title: "Unknown", Address: address}

	if raw, ok, err := s.store.Get(ctx, store.ChatInfoKey(chatID)); err != nil {
		return group, err
	} else if ok {
		if info, err := chat.UnmarshalInfo(raw); err == nil {
			group.Title = info.Title
		}
	}

	link, err := s.inviteLink(ctx, chatID)
	if err != nil {
		// A chat without a working invite link is still worth listing.
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Invite link unavailable")
	} else {
		group.InviteLink = link
	}
	return group, nil
}

// inviteLink returns the cached join-request link, creating and caching one
// on a miss.
func (s *Service) inviteLink(ctx context.Context, chatID int64) (string, error) {
	link, ok, err := s.store.Get(ctx, store.ChatLinkKey(chatID))
	if err != nil {
		return "", err
	}
	if ok && strings.HasPrefix(link, "https://") {
		return link, nil
	}
	link, err = s.links.CreateJoinRequestLink(ctx, chatID)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, store.ChatLinkKey(chatID), link); err != nil {
		return "", err
	}
	return link, nil
}
