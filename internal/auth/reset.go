package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTicketTTL is how long a password-reset ticket stays redeemable.
const ResetTicketTTL = 10 * time.Minute

// ResetTicket is a freshly minted password-reset credential. Plaintext is
// mailed to the user; only Digest and ExpiresAt are persisted.
type ResetTicket struct {
	Plaintext string
	Digest    string
	ExpiresAt time.Time
}

// NewResetTicket generates a random reset ticket.
func NewResetTicket() (*ResetTicket, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate reset ticket: %w", err)
	}
	plaintext := hex.EncodeToString(buf)

	return &ResetTicket{
		Plaintext: plaintext,
		Digest:    Digest(plaintext),
		ExpiresAt: time.Now().Add(ResetTicketTTL),
	}, nil
}
