package embedding

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"3-4-5 triangle", []float32{0, 0}, []float32{3, 4}, 5},
		{"symmetric", []float32{3, 4}, []float32{0, 0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EuclideanDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EuclideanDistance = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestEuclideanDistanceDegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}},
		{"both empty", nil, nil},
		{"one empty", []float32{1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EuclideanDistance(tt.a, tt.b); !math.IsInf(got, 1) {
				t.Errorf("expected +Inf, got %f", got)
			}
		})
	}
}
