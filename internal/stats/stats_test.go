package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregates(t *testing.T) {
	values := []float64{4, 1, 3, 2}
	assert.Equal(t, 2.5, Mean(values))
	assert.Equal(t, 10.0, Sum(values))
	assert.Equal(t, 2.5, Median(values))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input untouched")

	assert.Zero(t, Mean(nil))
	assert.Zero(t, Median(nil))
}

func TestQuantileInterpolates(t *testing.T) {
	values := []float64{0, 10, 20, 30, 40}
	assert.Equal(t, 0.0, Quantile(values, 0))
	assert.Equal(t, 40.0, Quantile(values, 1))
	assert.Equal(t, 36.0, Quantile(values, 0.9))
	assert.Equal(t, 36.0, Percentile(values, 90))
	assert.Equal(t, 40.0, Percentile(values, 150))
	assert.Zero(t, Percentile(nil, 50))
}

func TestCountAbove(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 200}
	assert.Equal(t, 1, CountAbove(values))
	assert.Zero(t, CountAbove(nil))
}
