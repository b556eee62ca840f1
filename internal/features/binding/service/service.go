// Package service implements the identity binding protocol: it consumes a
// signed, time-bounded claim proving control of a wallet and binds the
// recovered address to the Telegram user.
package service

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	apperrors "fans3-backend/internal/common/errors"
	"fans3-backend/internal/common/logger"
	"fans3-backend/internal/features/binding/models"
	"fans3-backend/internal/store"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Bind validates encodedClaim for the given user and, on success, persists
// the user→address binding and returns the checksummed address. Failures
// leave the store untouched; the caller re-prompts and the user resubmits a
// fresh claim.
func (s *Service) Bind(ctx context.Context, userID int64, username, encodedClaim string) (string, error) {
	claim, err := models.ParseClaim(encodedClaim)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	if claim.IssuedAt.After(now) {
		return "", apperrors.New(apperrors.ErrCodeClockSkew, "claim issued in the future").
			WithDetail("issued_at", claim.IssuedAtRaw)
	}
	if now.Sub(claim.IssuedAt) > models.TTL {
		return "", apperrors.New(apperrors.ErrCodeClaimExpired, "claim is older than the replay window").
			WithDetail("issued_at", claim.IssuedAtRaw)
	}

	address, err := recoverAddress(models.CanonicalMessage(username, userID, claim.IssuedAtRaw), claim.Signature)
	if err != nil {
		return "", err
	}

	if err := s.store.Set(ctx, store.UserAddressKey(userID), address); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeStoreError, "persist user address binding")
	}

	logger.Info().
		Int64("user_id", userID).
		Str("address", address).
		Msg("Address bound to user")
	return address, nil
}

// Address returns the user's bound wallet address, if any.
func (s *Service) Address(ctx context.Context, userID int64) (string, bool, error) {
	addr, ok, err := s.store.Get(ctx, store.UserAddressKey(userID))
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeStoreError, "read user address binding")
	}
	return addr, ok, nil
}

// recoverAddress runs EIP-191 personal-message ECDSA recovery and checks the
// result is a well-formed address. A corrupt signature either fails recovery
// outright or yields garbage, both reported as INVALID_ADDRESS.
func recoverAddress(message string, signature []byte) (string, error) {
	if len(signature) != crypto.SignatureLength {
		return "", apperrors.New(apperrors.ErrCodeInvalidAddress, "signature has wrong length").
			WithDetail("length", len(signature))
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidAddress, "cannot recover address from signature")
	}

	address := crypto.PubkeyToAddress(*pub).Hex()
	if !common.IsHexAddress(address) {
		return "", apperrors.New(apperrors.ErrCodeInvalidAddress, "recovered value is not a wallet address")
	}
	return address, nil
}
