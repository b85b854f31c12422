package siwf

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNonceRejected means the message nonce was unknown, expired, or already used.
	ErrNonceRejected = errors.New("nonce is invalid, expired, or already used")
	// ErrNonceStore wraps failures of the nonce backend itself.
	ErrNonceStore = errors.New("nonce store unavailable")
)

// NonceConsumer spends a single-use nonce.
type NonceConsumer interface {
	Consume(ctx context.Context, id string) (bool, error)
}

// Result is the verified identity carried by a sign-in message.
type Result struct {
	Address string `json:"address"`
	FID     int64  `json:"fid"`
	Nonce   string `json:"nonce"`
}

// Verifier checks sign-in messages for one domain.
type Verifier struct {
	domain string
	nonces NonceConsumer
	now    func() time.Time
}

func NewVerifier(domain string, nonces NonceConsumer) *Verifier {
	return &Verifier{domain: domain, nonces: nonces, now: time.Now}
}

// WithClock overrides the time source used for timestamp checks.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify validates message and its hex signature, then spends the nonce.
// The nonce is only consumed once everything else has checked out.
func (v *Verifier) Verify(ctx context.Context, message, signature string) (*Result, error) {
	input, err := ParseMessage(message)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if err := ValidateDomain(input, v.domain); err != nil {
		return nil, err
	}
	if input.ChainID != nil && *input.ChainID != ChainID {
		return nil, fmt.Errorf("unsupported chain id %s", *input.ChainID)
	}
	if err := ValidateTimestamps(input, v.now()); err != nil {
		return nil, err
	}
	fid, err := input.FID()
	if err != nil {
		return nil, err
	}
	sig, err := DecodeSignature(signature)
	if err != nil {
		return nil, err
	}
	if err := VerifySignature(message, sig, input.Address); err != nil {
		return nil, err
	}

	ok, err := v.nonces.Consume(ctx, input.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNonceStore, err)
	}
	if !ok {
		return nil, ErrNonceRejected
	}
	return &Result{Address: ChecksumAddress(input.Address), FID: fid, Nonce: input.Nonce}, nil
}
