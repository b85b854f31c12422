// Package siwf implements Sign In With Farcaster: EIP-4361 messages signed by
// an Ethereum custody address and bound to a Farcaster ID.
package siwf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ChainID is Optimism mainnet, where Farcaster custody addresses live.
	ChainID = "10"
	// Version is the EIP-4361 message version.
	Version = "1"

	fidResourcePrefix = "farcaster://fid/"
)

// SignInInput holds the fields of an EIP-4361 sign-in message.
type SignInInput struct {
	Domain         string
	Address        string
	Statement      *string
	URI            *string
	Version        *string
	ChainID        *string
	Nonce          string
	IssuedAt       string
	ExpirationTime *string
	NotBefore      *string
	RequestID      *string
	Resources      []string
}

// FID extracts the Farcaster ID from the farcaster://fid/{fid} resource.
func (in SignInInput) FID() (int64, error) {
	for _, r := range in.Resources {
		if strings.HasPrefix(r, fidResourcePrefix) {
			fid, err := strconv.ParseInt(strings.TrimPrefix(r, fidResourcePrefix), 10, 64)
			if err != nil || fid <= 0 {
				return 0, fmt.Errorf("invalid fid resource %q", r)
			}
			return fid, nil
		}
	}
	return 0, fmt.Errorf("missing %s resource", fidResourcePrefix)
}

// ConstructMessage builds the sign-in message as the wallet displays and signs it:
//
//	${domain} wants you to sign in with your Ethereum account:
//	${address}
//
//	${statement}
//
//	URI: ${uri}
//	Version: ${version}
//	Chain ID: ${chainId}
//	Nonce: ${nonce}
//	Issued At: ${issuedAt}
//	Expiration Time: ${expirationTime}
//	Not Before: ${notBefore}
//	Request ID: ${requestId}
//	Resources:
//	- farcaster://fid/${fid}
func ConstructMessage(input SignInInput) string {
	var sb strings.Builder

	sb.WriteString(input.Domain)
	sb.WriteString(" wants you to sign in with your Ethereum account:\n")
	sb.WriteString(input.Address)

	if input.Statement != nil && *input.Statement != "" {
		sb.WriteString("\n\n")
		sb.WriteString(*input.Statement)
	}

	sb.WriteString("\n")

	writeField := func(name string, v *string) {
		if v != nil && *v != "" {
			sb.WriteString("\n" + name + ": ")
			sb.WriteString(*v)
		}
	}
	writeField("URI", input.URI)
	writeField("Version", input.Version)
	writeField("Chain ID", input.ChainID)

	sb.WriteString("\nNonce: ")
	sb.WriteString(input.Nonce)
	sb.WriteString("\nIssued At: ")
	sb.WriteString(input.IssuedAt)

	writeField("Expiration Time", input.ExpirationTime)
	writeField("Not Before", input.NotBefore)
	writeField("Request ID", input.RequestID)

	if len(input.Resources) > 0 {
		sb.WriteString("\nResources:")
		for _, r := range input.Resources {
			sb.WriteString("\n- ")
			sb.WriteString(r)
		}
	}

	return sb.String()
}

// NewSignInInput creates a SignInInput for fid with the Farcaster defaults.
// nonce should come from the nonce service so it can be consumed on verify.
func NewSignInInput(domain, address string, fid int64, nonce string, opts ...InputOption) SignInInput {
	now := time.Now().UTC()
	issuedAt := now.Format(time.RFC3339)
	version := Version
	chainID := ChainID

	input := SignInInput{
		Domain:    domain,
		Address:   address,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
		Version:   &version,
		ChainID:   &chainID,
		Resources: []string{fmt.Sprintf("%s%d", fidResourcePrefix, fid)},
	}

	for _, opt := range opts {
		opt(&input)
	}

	return input
}

// InputOption is a functional option for customizing SignInInput.
type InputOption func(*SignInInput)

// WithStatement sets a custom statement message.
func WithStatement(statement string) InputOption {
	return func(i *SignInInput) {
		i.Statement = &statement
	}
}

// WithURI sets the URI field.
func WithURI(uri string) InputOption {
	return func(i *SignInInput) {
		i.URI = &uri
	}
}

// WithExpirationDuration sets expiration relative to issued time.
func WithExpirationDuration(d time.Duration) InputOption {
	return func(i *SignInInput) {
		issuedAt, err := time.Parse(time.RFC3339, i.IssuedAt)
		if err != nil {
			issuedAt = time.Now().UTC()
		}
		exp := issuedAt.Add(d).Format(time.RFC3339)
		i.ExpirationTime = &exp
	}
}

// WithRequestID sets the Request ID field.
func WithRequestID(id string) InputOption {
	return func(i *SignInInput) {
		i.RequestID = &id
	}
}
