package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fans3-backend/internal/domain/chat"
)

// Transport is the slice of the messaging platform the registration flow
// drives: role lookups, invite-permission control and invite-link creation.
type Transport interface {
	MemberRole(ctx context.Context, chatID, userID int64) (chat.Role, error)
	MemberInvitesEnabled(ctx context.Context, chatID int64) (bool, error)
	DisableMemberInvites(ctx context.Context, chatID int64) error
	CreateJoinRequestLink(ctx context.Context, chatID int64) (string, error)
}

// SupplyReader reads a subject's share supply; zero supply blocks
// finalization.
type SupplyReader interface {
	SharesSupply(ctx context.Context, subject common.Address) (*big.Int, error)
}
