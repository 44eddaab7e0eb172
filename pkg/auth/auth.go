// Package auth holds the interactive credential flow for hub agent
// tokens.
package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Credential is a hub agent token captured from the user.
type Credential struct {
	AgentToken string
	Method     string
}

// PasteToken prompts for an agent token on r and returns the trimmed
// credential. Empty input is an error, not an empty credential.
func PasteToken(hubName string, r io.Reader) (*Credential, error) {
	fmt.Printf("Paste the agent token from %s:\n", hubName)
	fmt.Print("> ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		return nil, errors.New("no input received")
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	return &Credential{AgentToken: token, Method: "token"}, nil
}
