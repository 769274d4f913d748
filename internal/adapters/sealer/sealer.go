package sealer

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

const plaintextMarker = "PLAINTEXT:"

var (
	ErrInvalidKey      = errors.New("ballot seal key must be 32 bytes")
	ErrPayloadTooShort = errors.New("sealed payload too short")
)

type aeadSealer struct {
	key             []byte
	acceptPlaintext bool
}

type Option func(*aeadSealer)

// AcceptPlaintext lets Open read ballots stored by the plaintext sealer before
// a key was configured. Seal never writes plaintext.
func AcceptPlaintext() Option {
	return func(s *aeadSealer) { s.acceptPlaintext = true }
}

// NewAEAD seals ballot selections with XChaCha20-Poly1305. The ballot's
// election, voter and id are bound as associated data, so a payload moved to
// another ballot row fails to open.
func NewAEAD(key []byte, opts ...Option) (ports.BallotSealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	s := &aeadSealer{key: bytes.Clone(key)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseKey accepts a 32-byte key as hex or standard base64.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if key, err := hex.DecodeString(encoded); err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	return nil, ErrInvalidKey
}

func (s *aeadSealer) Seal(record *domain.VoteRecord) ([]byte, error) {
	plaintext, err := json.Marshal(record.Selections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selections: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, associatedData(record.ElectionID, record.VoterID, record.ID)), nil
}

func (s *aeadSealer) Open(ballot *domain.SealedBallot) (map[string]string, error) {
	if s.acceptPlaintext && IsPlaintext(ballot.Payload) {
		return plaintextSealer{}.Open(ballot)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}

	if len(ballot.Payload) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrPayloadTooShort
	}
	nonce, ciphertext := ballot.Payload[:aead.NonceSize()], ballot.Payload[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, associatedData(ballot.ElectionID, ballot.VoterID, ballot.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to open ballot: %w", err)
	}
	return decodeSelections(plaintext)
}

func associatedData(electionID, voterID, ballotID string) []byte {
	return []byte(electionID + "\x00" + voterID + "\x00" + ballotID)
}

type plaintextSealer struct{}

// NewPlaintext stores selections readable, tagged with a marker so audit
// tooling can tell them apart from sealed payloads.
func NewPlaintext() ports.BallotSealer {
	return plaintextSealer{}
}

func (plaintextSealer) Seal(record *domain.VoteRecord) ([]byte, error) {
	encoded, err := json.Marshal(record.Selections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode selections: %w", err)
	}
	return append([]byte(plaintextMarker), encoded...), nil
}

func (plaintextSealer) Open(ballot *domain.SealedBallot) (map[string]string, error) {
	encoded, ok := bytes.CutPrefix(ballot.Payload, []byte(plaintextMarker))
	if !ok {
		return nil, errors.New("payload is not a plaintext ballot")
	}
	return decodeSelections(encoded)
}

// IsPlaintext reports whether payload was written by the plaintext sealer.
func IsPlaintext(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte(plaintextMarker))
}

func decodeSelections(data []byte) (map[string]string, error) {
	var selections map[string]string
	if err := json.Unmarshal(data, &selections); err != nil {
		return nil, fmt.Errorf("failed to decode selections: %w", err)
	}
	return selections, nil
}
