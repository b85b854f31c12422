package siwf

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var headerRegex = regexp.MustCompile(`^(.+) wants you to sign in with your Ethereum account:$`)

// fieldPrefixes start the fields section that follows the optional statement.
var fieldPrefixes = []string{"URI:", "Version:", "Chain ID:", "Nonce:", "Issued At:"}

// ParseMessage extracts SignInInput fields from a sign-in message string.
func ParseMessage(message string) (SignInInput, error) {
	var input SignInInput

	lines := strings.Split(message, "\n")
	if len(lines) < 2 {
		return input, fmt.Errorf("message too short")
	}

	matches := headerRegex.FindStringSubmatch(lines[0])
	if matches == nil {
		return input, fmt.Errorf("invalid header format")
	}
	input.Domain = matches[1]

	input.Address = strings.TrimSpace(lines[1])
	if !isHexAddress(input.Address) {
		return input, fmt.Errorf("invalid address %q", input.Address)
	}

	fieldsStart := -1
	for i := 2; i < len(lines) && fieldsStart < 0; i++ {
		line := strings.TrimSpace(lines[i])
		for _, p := range fieldPrefixes {
			if strings.HasPrefix(line, p) {
				fieldsStart = i
				break
			}
		}
	}
	if fieldsStart < 0 {
		return input, fmt.Errorf("missing message fields")
	}

	// Everything between the address and the fields is the statement.
	if statement := strings.TrimSpace(strings.Join(lines[2:fieldsStart], "\n")); statement != "" {
		input.Statement = &statement
	}

	inResources := false
	for _, line := range lines[fieldsStart:] {
		if inResources && strings.HasPrefix(line, "- ") {
			input.Resources = append(input.Resources, strings.TrimPrefix(line, "- "))
			continue
		}
		if strings.HasPrefix(line, "Resources:") {
			inResources = true
			continue
		}
		inResources = false

		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch name {
		case "URI":
			input.URI = &value
		case "Version":
			input.Version = &value
		case "Chain ID":
			input.ChainID = &value
		case "Nonce":
			input.Nonce = value
		case "Issued At":
			input.IssuedAt = value
		case "Expiration Time":
			input.ExpirationTime = &value
		case "Not Before":
			input.NotBefore = &value
		case "Request ID":
			input.RequestID = &value
		}
	}

	if input.Nonce == "" {
		return input, fmt.Errorf("missing nonce")
	}
	if input.IssuedAt == "" {
		return input, fmt.Errorf("missing issued-at")
	}
	return input, nil
}

// ValidateTimestamps checks that the message is inside its validity window at now.
func ValidateTimestamps(input SignInInput, now time.Time) error {
	now = now.UTC()

	if input.ExpirationTime != nil && *input.ExpirationTime != "" {
		exp, err := time.Parse(time.RFC3339, *input.ExpirationTime)
		if err != nil {
			return fmt.Errorf("invalid expiration time format: %w", err)
		}
		if now.After(exp) {
			return fmt.Errorf("message expired at %s", *input.ExpirationTime)
		}
	}

	if input.NotBefore != nil && *input.NotBefore != "" {
		nb, err := time.Parse(time.RFC3339, *input.NotBefore)
		if err != nil {
			return fmt.Errorf("invalid not-before time format: %w", err)
		}
		if now.Before(nb) {
			return fmt.Errorf("message not valid until %s", *input.NotBefore)
		}
	}

	// Allow 5 min clock skew on issued-at.
	issued, err := time.Parse(time.RFC3339, input.IssuedAt)
	if err != nil {
		return fmt.Errorf("invalid issued-at time format: %w", err)
	}
	if issued.After(now.Add(5 * time.Minute)) {
		return fmt.Errorf("message issued in the future: %s", input.IssuedAt)
	}

	return nil
}

// ValidateDomain checks that the message domain matches the expected domain.
func ValidateDomain(input SignInInput, expectedDomain string) error {
	if input.Domain != expectedDomain {
		return fmt.Errorf("domain mismatch: got %s, expected %s", input.Domain, expectedDomain)
	}
	return nil
}
