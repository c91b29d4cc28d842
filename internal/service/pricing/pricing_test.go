package pricing

import (
	"testing"

	"github.com/Kwendataxi/kwenda-sub010/internal/domain/types"
)

func TestEstimate(t *testing.T) {
	e := NewEngine(10)

	tests := []struct {
		name       string
		class      types.ServiceClass
		distanceKm float64
		surge      float64
		want       float64
	}{
		{
			name:       "standard base plus distance",
			class:      types.ClassStandard,
			distanceKm: 5,
			surge:      1,
			want:       500 + 5*100, // 1000
		},
		{
			name:       "express with surge",
			class:      types.ClassExpress,
			distanceKm: 10,
			surge:      1.5,
			want:       800 + 10*140*1.5, // 2900
		},
		{
			name:       "freight zero distance is base fare",
			class:      types.ClassFreight,
			distanceKm: 0,
			surge:      2,
			want:       1200,
		},
		{
			name:       "surge below one is clamped",
			class:      types.ClassStandard,
			distanceKm: 5,
			surge:      0.5,
			want:       1000,
		},
		{
			name:       "unknown class falls back to standard tariff",
			class:      types.ServiceClass("LUXURY"),
			distanceKm: 2,
			surge:      1,
			want:       700,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(tt.class, tt.distanceKm, tt.surge)
			if got != tt.want {
				t.Errorf("Estimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateSurgeMonotonic(t *testing.T) {
	e := NewEngine(10)

	low := e.Estimate(types.ClassStandard, 8, 1.0)
	high := e.Estimate(types.ClassStandard, 8, 2.0)
	if high <= low {
		t.Errorf("expected surge 2.0 estimate (%v) > surge 1.0 estimate (%v)", high, low)
	}
}

func TestFinal(t *testing.T) {
	e := NewEngine(10)

	if got := e.Final(1000, nil); got != 1000 {
		t.Errorf("Final without override = %v, want 1000", got)
	}

	override := 1250.0
	if got := e.Final(1000, &override); got != 1250 {
		t.Errorf("Final with override = %v, want 1250", got)
	}
}

func TestCancellationFee(t *testing.T) {
	e := NewEngine(10)

	tests := []struct {
		status types.BookingStatus
		want   float64
	}{
		{types.StatusRequested, 0},
		{types.StatusConfirmed, 0},
		{types.StatusDriverAssigned, 1000}, // 10% of 10000
		{types.StatusEnRoute, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			got := e.CancellationFee(tt.status, 10000)
			if got != tt.want {
				t.Errorf("CancellationFee(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestCancellationFeeZeroBeforeCommitment(t *testing.T) {
	e := NewEngine(10)

	for _, s := range []types.BookingStatus{types.StatusRequested, types.StatusConfirmed} {
		if fee := e.CancellationFee(s, 99999); fee != 0 {
			t.Errorf("expected zero fee for %s, got %v", s, fee)
		}
	}
	for _, s := range []types.BookingStatus{types.StatusDriverAssigned, types.StatusEnRoute} {
		if fee := e.CancellationFee(s, 99999); fee <= 0 {
			t.Errorf("expected positive fee for %s, got %v", s, fee)
		}
	}
}
