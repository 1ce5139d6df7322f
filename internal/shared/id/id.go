// Package id generates the identifiers used by the remote side.
//
// Every id is a ULID, optionally behind a short type prefix:
//   - sess_<ulid> names a PTY shell session
//   - tok_<ulid> is a single-use RPC session token
//
// ULIDs are k-sortable, so logs list sessions in creation order, and carry
// 80 bits of crypto/rand entropy, which is what makes tokens unguessable.
package id

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a PTY shell session.
type SessionID string

// Token authorizes a single RPC connection.
type Token string

const (
	SessionPrefix = "sess"
	TokenPrefix   = "tok"
)

var ErrMalformed = errors.New("malformed id")

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewToken generates a new session token.
func NewToken() Token {
	return Token(Default().GenerateWithPrefix(TokenPrefix))
}

func (id SessionID) String() string { return string(id) }
func (t Token) String() string      { return string(t) }

// ParseToken validates the shape of a token taken from a request path.
func ParseToken(s string) (Token, error) {
	if _, err := parsePrefixed(s, TokenPrefix); err != nil {
		return "", err
	}
	return Token(s), nil
}

func parsePrefixed(s, prefix string) (ulid.ULID, error) {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("%w: %q lacks prefix %q", ErrMalformed, s, prefix)
	}
	parsed, err := ulid.ParseStrict(rest)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: %q: %w", ErrMalformed, s, err)
	}
	return parsed, nil
}

// IsValid checks if an ID string is a valid ULID.
func IsValid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// Timestamp extracts the creation time from a bare or prefixed ULID.
func Timestamp(id string) (time.Time, error) {
	if _, rest, ok := strings.Cut(id, "_"); ok {
		id = rest
	}
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
