package marketdata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNonPositive(t *testing.T) {
	ts := []int64{1, 2, 3, 4, 5}
	cl := []float64{100, 0, -5, math.NaN(), 101}

	gotTs, gotCl := filterNonPositive(ts, cl)
	assert.Equal(t, []int64{1, 5}, gotTs)
	assert.Equal(t, []float64{100, 101}, gotCl)
}

func TestFilterNonPositiveRagged(t *testing.T) {
	gotTs, gotCl := filterNonPositive([]int64{1, 2, 3}, []float64{100, 101})
	assert.Equal(t, []int64{1, 2}, gotTs)
	assert.Equal(t, []float64{100, 101}, gotCl)
}

func TestFilterIQRShortSeriesUntouched(t *testing.T) {
	ts := []int64{1, 2, 3}
	cl := []float64{100, 5000, 101}

	gotTs, gotCl := filterIQR(ts, cl, 1.5, 20)
	assert.Equal(t, ts, gotTs)
	assert.Equal(t, cl, gotCl)
}

func TestFilterIQRDropsSpike(t *testing.T) {
	ts := make([]int64, 30)
	cl := make([]float64, 30)
	for i := range ts {
		ts[i] = int64(i)
		cl[i] = 100 + float64(i%5)
	}
	cl[13] = 9000

	gotTs, gotCl := filterIQR(ts, cl, 1.5, 20)
	require.Len(t, gotCl, 29)
	for _, v := range gotCl {
		assert.Less(t, v, 200.0)
	}
	assert.NotContains(t, gotTs, int64(13))
}

func TestFilterIQRFlatSeriesUntouched(t *testing.T) {
	ts := make([]int64, 25)
	cl := make([]float64, 25)
	for i := range ts {
		ts[i] = int64(i)
		cl[i] = 100
	}

	_, gotCl := filterIQR(ts, cl, 1.5, 20)
	assert.Len(t, gotCl, 25)
}
