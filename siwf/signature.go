package siwf

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// ErrSignatureMismatch means the signature recovers to a different address.
var ErrSignatureMismatch = errors.New("signature does not match address")

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// HashMessage returns the EIP-191 personal_sign digest of message.
func HashMessage(message string) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message))
	return keccak256([]byte(prefix), []byte(message))
}

// PublicKeyToAddress derives the EIP-55 checksummed address of pub.
func PublicKeyToAddress(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	return ChecksumAddress(hex.EncodeToString(keccak256(raw[1:])[12:]))
}

// ChecksumAddress formats a 20-byte hex address with EIP-55 mixed case.
func ChecksumAddress(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(addr, "0x"))
	sum := hex.EncodeToString(keccak256([]byte(lower)))
	out := []byte(lower)
	for i, c := range out {
		if c >= 'a' && c <= 'f' && sum[i] >= '8' {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}

func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hex.DecodeString(s[2:])
	return err == nil
}

// DecodeSignature parses a 65-byte r||s||v signature from hex.
func DecodeSignature(sig string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(b) != 65 {
		return nil, fmt.Errorf("invalid signature length: %d", len(b))
	}
	return b, nil
}

// RecoverAddress returns the address that produced sig over message.
func RecoverAddress(message string, sig []byte) (string, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("invalid recovery id %d", sig[64])
	}
	// decred expects [27+recid] || r || s for uncompressed keys.
	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, HashMessage(message))
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return PublicKeyToAddress(pub), nil
}

// VerifySignature checks that sig over message was made by address.
func VerifySignature(message string, sig []byte, address string) error {
	recovered, err := RecoverAddress(message, sig)
	if err != nil {
		return err
	}
	if !strings.EqualFold(recovered, address) {
		return fmt.Errorf("%w: recovered %s, expected %s", ErrSignatureMismatch, recovered, address)
	}
	return nil
}
