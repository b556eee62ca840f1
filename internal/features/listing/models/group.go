package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// Group is a gated chat as presented in listings.
type Group struct {
	ChatID     int64  `json:"chat_id"`
	Title      string `json:"title"`
	Address    string `json:"address"`
	InviteLink string `json:"invite_link,omitempty"`

	// PriceWei is the current one-share buy price. Informational only; nil
	// when the price read failed.
	PriceWei *big.Int `json:"price_wei,omitempty"`
}

// PriceEther renders the buy price in ether, or "" when unknown.
func (g Group) PriceEther() string {
	if g.PriceWei == nil {
		return ""
	}
	return new(big.Rat).SetFrac(g.PriceWei, big.NewInt(params.Ether)).FloatString(6)
}
