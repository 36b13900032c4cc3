package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSortsAndDedups(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Candle{
		{Time: t0.Add(2 * time.Minute), Close: 3},
		{Time: t0, Close: 1},
		{Time: t0.Add(time.Minute), Close: 2},
		{Time: t0.Add(2 * time.Minute), Close: 3.5},
	}

	got := Normalize(in)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 2, 3.5}, Closes(got))
}

func TestNormalizeEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Normalize(nil))
}

func TestLast(t *testing.T) {
	t.Parallel()

	_, ok := Last(nil)
	assert.False(t, ok)

	c, ok := Last([]Candle{{Close: 1}, {Close: 2}})
	assert.True(t, ok)
	assert.Equal(t, 2.0, c.Close)
}

func TestParseSide(t *testing.T) {
	t.Parallel()

	s, err := ParseSide(" buy ")
	require.NoError(t, err)
	assert.Equal(t, Buy, s)
	assert.Equal(t, 1.0, s.Sign())

	s, err = ParseSide("SELL")
	require.NoError(t, err)
	assert.False(t, s.IsBuy())
	assert.Equal(t, -1.0, s.Sign())

	_, err = ParseSide("hold")
	assert.Error(t, err)
}
