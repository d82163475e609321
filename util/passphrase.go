package util

import (
	"bufio"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mailio/go-vault-server/types"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/errgroup"
)

const (
	PassphraseWordCount = 6
	PassphraseSeparator = "-"
)

// KDFParams are shared by the wrap key and the auth hash derivation so both cost the same
type KDFParams struct {
	Iterations int
	KeyLength  int
}

// DefaultKDFParams are PBKDF2-HMAC-SHA256 with 600k iterations and a 256 bit output
var DefaultKDFParams = KDFParams{
	Iterations: 600_000,
	KeyLength:  32,
}

func (p KDFParams) validate() error {
	if p.Iterations <= 0 {
		return fmt.Errorf("%w: kdf iterations must be positive", types.ErrInvalidInput)
	}
	switch p.KeyLength {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: kdf key length must be 16, 24 or 32 bytes", types.ErrInvalidInput)
}

// Passphrase is the ordered 6 word secret
type Passphrase []string

// ParsePassphrase splits a separator joined passphrase into its words
func ParsePassphrase(s string) (Passphrase, error) {
	p := Passphrase(strings.Split(strings.TrimSpace(s), PassphraseSeparator))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p Passphrase) Validate() error {
	if len(p) != PassphraseWordCount {
		return fmt.Errorf("%w: passphrase must have %d words, got %d", types.ErrInvalidInput, PassphraseWordCount, len(p))
	}
	for _, w := range p {
		if w == "" || strings.Contains(w, PassphraseSeparator) {
			return fmt.Errorf("%w: passphrase contains an empty or malformed word", types.ErrInvalidInput)
		}
	}
	return nil
}

// String joins the words with the separator; this is the KDF input
func (p Passphrase) String() string {
	return strings.Join(p, PassphraseSeparator)
}

func derive(p Passphrase, salt []byte, params KDFParams) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", types.ErrInvalidInput)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return pbkdf2.Key([]byte(p.String()), salt, params.Iterations, params.KeyLength, sha256.New), nil
}

// DeriveWrapKey derives the key that wraps the vault key. The salt is random and stored next to the
// wrapped key. The result never leaves the client.
func DeriveWrapKey(p Passphrase, randomSalt []byte, params KDFParams) ([]byte, error) {
	return derive(p, randomSalt, params)
}

// DeriveAuthHash derives the password equivalent the server stores and compares at login.
// It is salted with the username so the server can be asked for it without a salt round trip;
// precomputation resistance therefore rests on the iteration count alone.
func DeriveAuthHash(p Passphrase, username string, params KDFParams) ([]byte, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", types.ErrInvalidInput)
	}
	return derive(p, []byte(username), params)
}

// Credentials is the client side derivation output
type Credentials struct {
	WrapKey  []byte
	AuthHash []byte
}

// DeriveCredentials runs both derivations in parallel. A context that is already done aborts before any work.
func DeriveCredentials(ctx context.Context, p Passphrase, randomSalt []byte, username string, params KDFParams) (*Credentials, error) {
	if string(randomSalt) == username {
		return nil, fmt.Errorf("%w: wrap key salt must differ from the username", types.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// pbkdf2 cannot be interrupted, a derivation that has not started yet is skipped once the other fails
	g, gctx := errgroup.WithContext(ctx)
	creds := &Credentials{}
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		k, err := DeriveWrapKey(p, randomSalt, params)
		creds.WrapKey = k
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		h, err := DeriveAuthHash(p, username, params)
		creds.AuthHash = h
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return creds, nil
}

// WordList is the shared list passphrase words and usernames are drawn from
type WordList []string

// LoadWordList reads a newline separated word list from disk
func LoadWordList(path string) (WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseWordList(f)
}

// ParseWordList reads one word per line, skipping blanks and words containing the separator
func ParseWordList(r io.Reader) (WordList, error) {
	var words WordList
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" || strings.Contains(w, PassphraseSeparator) || strings.ContainsAny(w, " \t") {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: word list needs at least two words", types.ErrInvalidInput)
	}
	return words, nil
}

// GeneratePassphrase picks PassphraseWordCount words with crypto/rand
func GeneratePassphrase(words WordList) (Passphrase, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty word list", types.ErrInvalidInput)
	}
	p := make(Passphrase, PassphraseWordCount)
	for i := range p {
		idx, err := RandomIndex(len(words))
		if err != nil {
			return nil, err
		}
		p[i] = words[idx]
	}
	return p, nil
}

// GenerateUsername returns a random word followed by two random digits, e.g. alice42
func GenerateUsername(words WordList) (string, error) {
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty word list", types.ErrInvalidInput)
	}
	idx, err := RandomIndex(len(words))
	if err != nil {
		return "", err
	}
	n, err := RandomIndex(100)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%02d", words[idx], n), nil
}
