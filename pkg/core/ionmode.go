package core

import (
	"fmt"
	"strings"
)

// IonMode is the polarity of an acquisition
type IonMode string

const (
	Positive IonMode = "pos"
	Negative IonMode = "neg"
)

// ParseIonMode accepts "pos", "neg", "positive", "negative", "+" and "-".
func ParseIonMode(s string) (IonMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pos", "positive", "+":
		return Positive, nil
	case "neg", "negative", "-":
		return Negative, nil
	}
	return "", fmt.Errorf("invalid ion mode '%s', must be pos or neg", s)
}

// Sign returns +1 for positive and -1 for negative mode.
func (m IonMode) Sign() int {
	if m == Negative {
		return -1
	}
	return 1
}

// ReferenceAdduct is the adduct every other adduct is converted to
// before neutral losses are computed.
func (m IonMode) ReferenceAdduct() string {
	if m == Negative {
		return "[M-H]-"
	}
	return "[M+H]+"
}

// Valid reports whether m is one of the two known modes.
func (m IonMode) Valid() bool {
	return m == Positive || m == Negative
}
