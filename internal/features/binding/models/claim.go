package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	apperrors "fans3-backend/internal/common/errors"
)

// TTL is the replay window of a signed claim. A policy constant, not
// negotiated per request.
const TTL = 30 * time.Minute

// Delimiter joins the two base64 segments of an encoded claim.
const Delimiter = "|"

// messageTemplate is the fixed canonical text the wallet signs. The issued_at
// string is inserted verbatim as decoded from the claim, since the signature
// covers the exact bytes the signing page rendered.
const messageTemplate = "Sign this message to allow telegram user\n\n%s(%d)\n\nto join groups that you own a share.\n\nAvailable for 30 minutes.\nTime now: %s"

// Claim is a decoded binding attestation: a timestamped signature over the
// canonical message. Ephemeral; only the recovered address outlives it.
type Claim struct {
	// IssuedAtRaw is the timestamp string exactly as signed.
	IssuedAtRaw string
	IssuedAt    time.Time
	Signature   []byte
}

// ParseClaim decodes `base64(issued_at)|base64(signature)`. Any structural
// defect, undecodable segment or unparseable timestamp is MALFORMED_CLAIM.
func ParseClaim(encoded string) (*Claim, error) {
	parts := strings.Split(encoded, Delimiter)
	if len(parts) != 2 {
		return nil, apperrors.New(apperrors.ErrCodeMalformedClaim, "claim must have exactly two segments")
	}

	tsBytes, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedClaim, "timestamp segment is not valid base64")
	}
	issuedAtRaw := string(tsBytes)
	issuedAt, err := time.Parse(time.RFC3339Nano, issuedAtRaw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedClaim, "timestamp is not a valid ISO-8601 instant")
	}

	signature, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedClaim, "signature segment is not valid base64")
	}

	return &Claim{IssuedAtRaw: issuedAtRaw, IssuedAt: issuedAt, Signature: signature}, nil
}

// CanonicalMessage reconstructs the signed text for a user and timestamp.
func CanonicalMessage(username string, userID int64, issuedAt string) string {
	return fmt.Sprintf(messageTemplate, username, userID, issuedAt)
}
