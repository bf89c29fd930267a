package ingest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitDimension(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		dim  int
		want []float32
	}{
		{name: "exact fit", in: []float32{1, 2, 3}, dim: 3, want: []float32{1, 2, 3}},
		{name: "pads with zeros", in: []float32{1, 2}, dim: 4, want: []float32{1, 2, 0, 0}},
		{name: "truncates", in: []float32{1, 2, 3, 4}, dim: 2, want: []float32{1, 2}},
		{name: "empty to dim", in: nil, dim: 3, want: []float32{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FitDimension(tt.in, tt.dim))
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	assert.InDelta(t, 1.0, math.Sqrt(magnitude), 1e-6)
}

func TestNormalizeVectorZero(t *testing.T) {
	v := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestNormalizeVectorEmpty(t *testing.T) {
	assert.Empty(t, NormalizeVector(nil))
}

func TestNormalizeVectorDoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	NormalizeVector(in)
	assert.Equal(t, []float32{3, 4}, in)
}
