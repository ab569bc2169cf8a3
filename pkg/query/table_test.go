package query

import (
	"errors"
	"image"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func testValues(width, height int) []float64 {
	values := make([]float64, width*height)
	for i := range values {
		values[i] = float64((i*7)%11) + 0.5
	}
	return values
}

// TestSumMatchesBruteForce verifies every rectangle against a direct sum
func TestSumMatchesBruteForce(t *testing.T) {
	width, height := 6, 5
	values := testValues(width, height)

	table, err := NewTable(values, width, height)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	for y0 := 0; y0 < height; y0++ {
		for x0 := 0; x0 < width; x0++ {
			for y1 := y0 + 1; y1 <= height; y1++ {
				for x1 := x0 + 1; x1 <= width; x1++ {
					rect := image.Rect(x0, y0, x1, y1)
					want := 0.0
					for y := y0; y < y1; y++ {
						for x := x0; x < x1; x++ {
							want += values[y*width+x]
						}
					}
					got, err := table.Sum(rect)
					if err != nil {
						t.Fatalf("Sum(%v) failed: %v", rect, err)
					}
					if math.Abs(got-want) > 1e-9 {
						t.Errorf("Sum(%v): expected %f, got %f", rect, want, got)
					}
				}
			}
		}
	}
}

// TestMeanStdDev compares window statistics with gonum
func TestMeanStdDev(t *testing.T) {
	width, height := 8, 8
	values := testValues(width, height)

	table, err := NewTable(values, width, height)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	squares, err := NewTable(Squares(values), width, height)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	rect := image.Rect(2, 1, 7, 6)
	var window []float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		window = append(window, values[y*width+rect.Min.X:y*width+rect.Max.X]...)
	}
	wantMean, wantVar := stat.PopMeanVariance(window, nil)

	mean, stddev, err := MeanStdDev(table, squares, rect)
	if err != nil {
		t.Fatalf("MeanStdDev failed: %v", err)
	}
	if math.Abs(mean-wantMean) > 1e-9 {
		t.Errorf("Expected mean %f, got %f", wantMean, mean)
	}
	if math.Abs(stddev-math.Sqrt(wantVar)) > 1e-9 {
		t.Errorf("Expected stddev %f, got %f", math.Sqrt(wantVar), stddev)
	}

	m1, m2 := table.Moments(squares)
	if math.Abs(m1-stat.Mean(values, nil)) > 1e-9 {
		t.Errorf("Expected first moment %f, got %f", stat.Mean(values, nil), m1)
	}
	if math.Abs(m2-stat.Mean(Squares(values), nil)) > 1e-9 {
		t.Errorf("Expected second moment %f, got %f", stat.Mean(Squares(values), nil), m2)
	}
}

func TestBoxFilter(t *testing.T) {
	values := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	table, err := NewTable(values, 3, 3)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	out := table.BoxFilter(1)
	if out[4] != 5 {
		t.Errorf("Expected center mean 5, got %f", out[4])
	}
	// corner window covers 1, 2, 4, 5
	if out[0] != 3 {
		t.Errorf("Expected corner mean 3, got %f", out[0])
	}

	same := table.BoxFilter(0)
	for i, v := range values {
		if same[i] != v {
			t.Errorf("Expected radius 0 to keep %f at %d, got %f", v, i, same[i])
		}
	}
}

func TestSumErrors(t *testing.T) {
	table, err := NewTable([]float64{1, 2, 3, 4}, 2, 2)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	if table.Total() != 10 {
		t.Errorf("Expected total 10, got %f", table.Total())
	}

	if _, err := table.Sum(image.Rect(0, 0, 3, 1)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if sum, err := table.Sum(image.Rect(1, 1, 1, 2)); err != nil || sum != 0 {
		t.Errorf("Expected empty rectangle to sum to 0, got %f (%v)", sum, err)
	}
	if _, err := NewTable([]float64{1}, 2, 2); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds for short input, got %v", err)
	}
}

func TestSliceStats(t *testing.T) {
	width, height := 5, 4
	values := testValues(width, height)
	table, err := NewTable(values, width, height)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	texels := table.Texels()
	for i, v := range values {
		if math.Abs(texels[i]-v) > 1e-9 {
			t.Errorf("Expected recovered texel %f at %d, got %f", v, i, texels[i])
		}
	}

	s := SliceStats(table)
	wantMean, wantVar := stat.PopMeanVariance(values, nil)
	if math.Abs(s.Mean-wantMean) > 1e-9 {
		t.Errorf("Expected mean %f, got %f", wantMean, s.Mean)
	}
	if math.Abs(s.StdDev-math.Sqrt(wantVar)) > 1e-9 {
		t.Errorf("Expected stddev %f, got %f", math.Sqrt(wantVar), s.StdDev)
	}
	if s.Min != 0.5 || s.Max != 10.5 {
		t.Errorf("Expected range [0.5, 10.5], got [%f, %f]", s.Min, s.Max)
	}
	if math.Abs(s.Total-wantMean*float64(len(values))) > 1e-9 {
		t.Errorf("Expected total %f, got %f", wantMean*float64(len(values)), s.Total)
	}
}
