package runner

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// DefaultMaxInputSize is 32KB, enough for pasted documents in a chat turn.
const DefaultMaxInputSize = 32 * 1024

// EnvMaxInputSize overrides DefaultMaxInputSize for PolicyFromEnv.
const EnvMaxInputSize = "AGENTGRAPH_MAX_INPUT_SIZE"

// Terminal escape sequences (CSI and OSC) pasted from a shell.
var escapeSeq = regexp.MustCompile(`\x1b(\[[0-9;?]*[ -/]*[@-~]|\][^\x07\x1b]*(\x07|\x1b\\))`)

// InputPolicy bounds and cleans a user message before it is appended to a thread.
type InputPolicy struct {
	// MaxBytes caps the encoded size of one message. Zero means DefaultMaxInputSize.
	MaxBytes int
}

// PolicyFromEnv returns the default policy, honouring EnvMaxInputSize when it
// holds a positive integer.
func PolicyFromEnv() InputPolicy {
	if v, err := strconv.Atoi(os.Getenv(EnvMaxInputSize)); err == nil && v > 0 {
		return InputPolicy{MaxBytes: v}
	}
	return InputPolicy{MaxBytes: DefaultMaxInputSize}
}

// Limit returns the effective size cap.
func (p InputPolicy) Limit() int {
	if p.MaxBytes > 0 {
		return p.MaxBytes
	}
	return DefaultMaxInputSize
}

// Clean rejects oversized or malformed input with a *domain.InputError and
// otherwise returns the text with escape sequences and control characters
// removed. Line breaks are normalised to "\n"; tabs are kept.
func (p InputPolicy) Clean(text string) (string, error) {
	if limit := p.Limit(); len(text) > limit {
		return "", &domain.InputError{Reason: domain.ErrInputTooLarge, Size: len(text), Limit: limit}
	}
	if !utf8.ValidString(text) {
		return "", &domain.InputError{Reason: domain.ErrInputNotUTF8, Size: len(text)}
	}

	if strings.ContainsRune(text, '\r') {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	if !strings.ContainsFunc(text, dropped) {
		return text, nil
	}
	text = escapeSeq.ReplaceAllString(text, "")
	return strings.Map(func(r rune) rune {
		if dropped(r) {
			return -1
		}
		return r
	}, text), nil
}

// SanitizeInput cleans text with PolicyFromEnv.
func SanitizeInput(text string) (string, error) {
	return PolicyFromEnv().Clean(text)
}

func dropped(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
}
