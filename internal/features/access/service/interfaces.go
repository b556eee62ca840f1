package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceReader is the slice of the entitlement client the decision engine
// needs: a fresh on-chain balance read for one subject/holder pair.
type BalanceReader interface {
	SharesBalance(ctx context.Context, subject, holder common.Address) (*big.Int, error)
}
