package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSnapshotDocumentShape(t *testing.T) {
	s := Snapshot{
		Active:           true,
		ScopeID:          "chan",
		EndTime:          time.UnixMilli(1767225600000),
		WinnersCount:     2,
		Prize:            "Mug",
		Entries:          map[string]int{"u": 3},
		MultiplierRoleID: "vip",
		MultiplierWeight: 3,
	}
	data, err := EncodeSnapshot(s)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"active": true,
		"scopeId": "chan",
		"endTime": 1767225600000,
		"winnersCount": 2,
		"prizeDescription": "Mug",
		"entries": {"u": 3},
		"multiplierRoleId": "vip",
		"multiplierWeight": 3
	}`, string(data))
}

func TestDecodeSnapshot(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		s, err := DecodeSnapshot(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultSnapshot(), s)
	})

	t.Run("missing fields are normalized", func(t *testing.T) {
		s, err := DecodeSnapshot([]byte(`{"active":true,"scopeId":"c","endTime":1000,"multiplierRoleId":null}`))
		require.NoError(t, err)
		assert.True(t, s.Active)
		assert.Equal(t, 1, s.WinnersCount)
		assert.Equal(t, 1, s.MultiplierWeight)
		assert.NotNil(t, s.Entries)
		assert.Empty(t, s.MultiplierRoleID)
		assert.Equal(t, time.UnixMilli(1000).UTC(), s.EndTime)
	})

	t.Run("malformed document", func(t *testing.T) {
		s, err := DecodeSnapshot([]byte(`{"active": "yes"`))
		assert.Error(t, err)
		assert.False(t, s.Active)
	})
}

func TestNormalizeClampsWeights(t *testing.T) {
	s := Snapshot{
		Active:           true,
		Entries:          map[string]int{"zero": 0, "negative": -4, "ok": 3, "huge": math.MaxInt},
		MultiplierWeight: math.MaxInt,
	}
	s.Normalize()

	assert.Equal(t, map[string]int{"zero": 1, "negative": 1, "ok": 3, "huge": MaxMultiplierWeight}, s.Entries)
	assert.Equal(t, MaxMultiplierWeight, s.MultiplierWeight)
}
