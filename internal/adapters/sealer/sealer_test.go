package sealer

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/univote/internal/core/domain"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func sealBallot(t *testing.T, s interface {
	Seal(*domain.VoteRecord) ([]byte, error)
}) (*domain.VoteRecord, *domain.SealedBallot) {
	t.Helper()
	record := &domain.VoteRecord{
		ID:         "vote-1",
		ElectionID: "election_1",
		VoterID:    "s1",
		Selections: map[string]string{"pres": "alice", "vp": "bob"},
	}
	payload, err := s.Seal(record)
	require.NoError(t, err)
	return record, &domain.SealedBallot{
		ID:         record.ID,
		ElectionID: record.ElectionID,
		VoterID:    record.VoterID,
		Payload:    payload,
	}
}

func TestAEAD(t *testing.T) {
	s, err := NewAEAD(testKey())
	require.NoError(t, err)

	t.Run("Round trip", func(t *testing.T) {
		record, ballot := sealBallot(t, s)
		assert.NotContains(t, string(ballot.Payload), "alice")
		assert.False(t, IsPlaintext(ballot.Payload))

		selections, err := s.Open(ballot)
		require.NoError(t, err)
		assert.Equal(t, record.Selections, selections)
	})

	t.Run("Payload bound to its ballot", func(t *testing.T) {
		_, ballot := sealBallot(t, s)
		ballot.VoterID = "s2"
		_, err := s.Open(ballot)
		assert.Error(t, err)
	})

	t.Run("Tampered payload", func(t *testing.T) {
		_, ballot := sealBallot(t, s)
		ballot.Payload[len(ballot.Payload)-1] ^= 0xff
		_, err := s.Open(ballot)
		assert.Error(t, err)
	})

	t.Run("Short payload", func(t *testing.T) {
		_, err := s.Open(&domain.SealedBallot{Payload: []byte("x")})
		assert.ErrorIs(t, err, ErrPayloadTooShort)
	})

	t.Run("Wrong key", func(t *testing.T) {
		_, ballot := sealBallot(t, s)
		other := testKey()
		other[0] = 0xff
		o, err := NewAEAD(other)
		require.NoError(t, err)
		_, err = o.Open(ballot)
		assert.Error(t, err)
	})
}

func TestAEADAcceptPlaintext(t *testing.T) {
	record, legacy := sealBallot(t, NewPlaintext())

	strict, err := NewAEAD(testKey())
	require.NoError(t, err)
	_, err = strict.Open(legacy)
	assert.Error(t, err)

	migrating, err := NewAEAD(testKey(), AcceptPlaintext())
	require.NoError(t, err)

	selections, err := migrating.Open(legacy)
	require.NoError(t, err)
	assert.Equal(t, record.Selections, selections)

	_, sealed := sealBallot(t, migrating)
	assert.False(t, IsPlaintext(sealed.Payload))
	selections, err = migrating.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, record.Selections, selections)
}

func TestNewAEADRejectsShortKey(t *testing.T) {
	_, err := NewAEAD([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey(hex.EncodeToString(testKey()))
	require.NoError(t, err)
	assert.Equal(t, testKey(), key)

	key, err = ParseKey("AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=")
	require.NoError(t, err)
	assert.Equal(t, testKey(), key)

	_, err = ParseKey("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestPlaintext(t *testing.T) {
	s := NewPlaintext()
	record, ballot := sealBallot(t, s)

	assert.True(t, IsPlaintext(ballot.Payload))
	assert.Contains(t, string(ballot.Payload), "alice")

	selections, err := s.Open(ballot)
	require.NoError(t, err)
	assert.Equal(t, record.Selections, selections)

	_, err = s.Open(&domain.SealedBallot{Payload: []byte(`{"pres":"alice"}`)})
	assert.Error(t, err)
}
