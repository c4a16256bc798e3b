package grants

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrGrantNotFound indicates the token does not reference an issued grant.
	ErrGrantNotFound = errors.New("grants: grant not found")
	// ErrGrantRedeemed indicates the token was already redeemed once.
	ErrGrantRedeemed = errors.New("grants: grant already redeemed")
	// ErrDuplicateToken indicates a token collision on insert. With 32 random
	// bytes this never happens in practice; it is surfaced rather than
	// silently overwriting an issued grant.
	ErrDuplicateToken = errors.New("grants: token already issued")
)

// Grant is the record the delivery vault reads back for a capability token.
// Field names form the wire contract with the vault and must not change.
type Grant struct {
	IssuedAt      time.Time  `json:"issued_at"`
	ProductFolder string     `json:"product_folder"`
	ProductName   string     `json:"product_name"`
	UserID        string     `json:"user_id"`
	ProductID     string     `json:"product_id"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
}

// Store is the append-mostly keyed grant store. Put must be durable before
// returning: a token the vault cannot look up must never reach a client.
type Store interface {
	Put(ctx context.Context, token string, grant Grant) error
	Get(ctx context.Context, token string) (Grant, error)
	// Redeem marks the grant consumed, failing with ErrGrantRedeemed on a
	// second redemption attempt.
	Redeem(ctx context.Context, token string) (Grant, error)
	List(ctx context.Context) (map[string]Grant, error)
}
