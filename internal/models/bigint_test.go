package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntJSON(t *testing.T) {
	amount, err := NewBigIntFromString("123456789012345678901234567890")
	require.NoError(t, err)

	data, err := json.Marshal(amount)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(data))

	var back BigInt
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Zero(t, back.Cmp(&amount.Int))

	// bare numbers from older payloads still parse
	var bare BigInt
	require.NoError(t, json.Unmarshal([]byte(`42`), &bare))
	assert.Equal(t, int64(42), bare.Int64())

	var empty BigInt
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.Zero(t, empty.Sign())

	var bad BigInt
	assert.Error(t, json.Unmarshal([]byte(`"not-a-number"`), &bad))
}

func TestBigIntClone(t *testing.T) {
	a := NewBigInt(100)
	b := a.Clone()
	b.SetInt64(200)
	assert.Equal(t, int64(100), a.Int64())

	var nilInt *BigInt
	assert.Nil(t, nilInt.Clone())
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 0.99, Ratio(NewBigInt(99), NewBigInt(100)), 0.0001)
	assert.Zero(t, Ratio(nil, NewBigInt(100)))
	assert.Zero(t, Ratio(NewBigInt(99), nil))
	assert.Zero(t, Ratio(NewBigInt(99), NewBigInt(0)))
}

func TestUsdTokenConversions(t *testing.T) {
	assert.InDelta(t, 39.88, UsdFromTokenAmount(NewBigInt(39_880_000), 6), 0.0001)
	assert.Zero(t, UsdFromTokenAmount(nil, 6))

	amount := TokenAmountFromUsd(39.88, 6)
	assert.Equal(t, int64(39_880_000), amount.Int64())

	// negative dollars clamp to zero token units
	assert.Zero(t, TokenAmountFromUsd(-5, 6).Sign())

	// converting back and forth stays within rounding error
	roundTrip := UsdFromTokenAmount(TokenAmountFromUsd(12.34, 6), 6)
	assert.InDelta(t, 12.34, roundTrip, 0.000001)
}
