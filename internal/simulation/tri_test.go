package simulation

import (
	"math"
	"math/rand"
	"testing"
)

func TestTriSampleBoundsAndMean(t *testing.T) {
	tri := Tri{Min: 10, Mode: 20, Max: 50}
	rng := rand.New(rand.NewSource(42))

	const n = 200000
	var sum float64
	for i := 0; i < n; i++ {
		x := tri.Sample(rng)
		if x < tri.Min || x > tri.Max {
			t.Fatalf("sample %v outside [%v,%v]", x, tri.Min, tri.Max)
		}
		sum += x
	}

	mean := sum / n
	want := tri.Mean()
	if math.Abs(mean-want) > 0.2 {
		t.Fatalf("sample mean %.3f, want about %.3f", mean, want)
	}
}

func TestTriMeanAnalytic(t *testing.T) {
	tri := Tri{Min: 10, Mode: 20, Max: 50}
	if got, want := tri.Mean(), 80.0/3.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("mean %.6f, want %.6f", got, want)
	}
}

func TestTriDegenerateReturnsConstant(t *testing.T) {
	tri := Scalar(7.5)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		if x := tri.Sample(rng); x != 7.5 {
			t.Fatalf("degenerate sample %v, want 7.5", x)
		}
	}
}

func TestTriValid(t *testing.T) {
	cases := []struct {
		name string
		tri  Tri
		want bool
	}{
		{"ordered", Tri{Min: 1, Mode: 2, Max: 3}, true},
		{"degenerate", Scalar(4), true},
		{"zero", Tri{}, true},
		{"max below min", Tri{Min: 10, Mode: 5, Max: 1}, false},
		{"mode above max", Tri{Min: 1, Mode: 9, Max: 3}, false},
		{"negative", Tri{Min: -1, Mode: 0, Max: 1}, false},
		{"nan", Tri{Min: 1, Mode: math.NaN(), Max: 3}, false},
		{"inf", Tri{Min: 1, Mode: 2, Max: math.Inf(1)}, false},
	}
	for _, tc := range cases {
		if got := tc.tri.Valid(); got != tc.want {
			t.Fatalf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
