package compute

import "testing"

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestP95(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single element", []float64{42}, 42},
		{"two elements clamps to last", []float64{100, 200}, 200},
		{"ten elements", seq(10), 10},
		{"twenty elements", seq(20), 20},
		{"hundred elements", seq(100), 96},
		{"duplicates", []float64{5, 5, 5, 5, 5}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := P95(tt.in); got != tt.want {
				t.Errorf("P95 = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestP95_ReturnsElementOfInput(t *testing.T) {
	in := []float64{120, 340, 560, 780, 1900, 2400, 25000}
	got := P95(in)
	for _, v := range in {
		if v == got {
			return
		}
	}
	t.Errorf("P95 = %v, not an element of %v", got, in)
}
