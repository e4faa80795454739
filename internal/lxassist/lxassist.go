// Package lxassist provides the core types shared by the Linux command
// assistant client: timeline messages, senders and question handling.
// The session and message-delivery engine lives in the engine subpackage;
// the HTTP backend client lives in backend.
package lxassist

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultGreeting is shown when no conversation history can be loaded.
const DefaultGreeting = "Hello! I'm your Linux command assistant. Ask me anything about Linux commands and I'll help you out!"

// MaxQuestionLength bounds a single submitted question.
const MaxQuestionLength = 4000

// NormalizeQuestion trims the question and validates it for submission.
//
// Example:
//
//	q, err := NormalizeQuestion("  how do I list files?  ")
//	// q = "how do I list files?"
func NormalizeQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	if n := utf8.RuneCountInString(q); n > MaxQuestionLength {
		return "", fmt.Errorf("question is too long (%d characters, max %d)", n, MaxQuestionLength)
	}
	return q, nil
}
