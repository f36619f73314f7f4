package geo

import (
	"math"
	"testing"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	p := Point{Lat: 12.9716, Lng: 77.5946}
	if d := Distance(p, p); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{
			name: "one degree of latitude",
			a:    Point{Lat: 0, Lng: 0},
			b:    Point{Lat: 1, Lng: 0},
			want: 111.195,
			tol:  0.01,
		},
		{
			name: "quarter of the equator",
			a:    Point{Lat: 0, Lng: 0},
			b:    Point{Lat: 0, Lng: 90},
			want: math.Pi * EarthRadiusKm / 2,
			tol:  0.001,
		},
		{
			name: "london to paris",
			a:    Point{Lat: 51.5074, Lng: -0.1278},
			b:    Point{Lat: 48.8566, Lng: 2.3522},
			want: 343.5,
			tol:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance() = %f, want %f (±%f)", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDistance_IsSymmetric(t *testing.T) {
	a := Point{Lat: 12.9352, Lng: 77.6245}
	b := Point{Lat: 13.0358, Lng: 77.5970}
	if math.Abs(Distance(a, b)-Distance(b, a)) > 1e-9 {
		t.Fatal("expected symmetric distance")
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{Lat: 0, Lng: 0}, true},
		{Point{Lat: 90, Lng: 180}, true},
		{Point{Lat: -90, Lng: -180}, true},
		{Point{Lat: 90.1, Lng: 0}, false},
		{Point{Lat: 0, Lng: -180.5}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}
