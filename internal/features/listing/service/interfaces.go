package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader reads the listing-side contract surface: the subjects a buyer
// holds and informational buy prices.
type ChainReader interface {
	Holdings(ctx context.Context, holder common.Address) ([]common.Address, error)
	BuyPrice(ctx context.Context, subject common.Address, amount *big.Int) (*big.Int, error)
}

// LinkCreator creates a join-request invite link for a chat; listings cache
// the result in the store.
type LinkCreator interface {
	CreateJoinRequestLink(ctx context.Context, chatID int64) (string, error)
}
