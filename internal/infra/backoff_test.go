package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 60 * time.Second},  // capped
		{100, 60 * time.Second}, // still capped
		{-1, 1 * time.Second},
	}

	for _, tt := range tests {
		got := CalculateBackoff(tt.retryCount)
		if got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %s, want %s", tt.retryCount, got, tt.want)
		}
	}
}

func TestBackoffWithBase(t *testing.T) {
	tests := []struct {
		base       time.Duration
		max        time.Duration
		retryCount int
		want       time.Duration
	}{
		{200 * time.Millisecond, 5 * time.Second, 0, 200 * time.Millisecond},
		{200 * time.Millisecond, 5 * time.Second, 1, 400 * time.Millisecond},
		{200 * time.Millisecond, 5 * time.Second, 2, 800 * time.Millisecond},
		{200 * time.Millisecond, 5 * time.Second, 10, 5 * time.Second},
		{200 * time.Millisecond, 5 * time.Second, 64, 5 * time.Second}, // shift guard
	}

	for _, tt := range tests {
		got := BackoffWithBase(tt.base, tt.max, tt.retryCount)
		if got != tt.want {
			t.Errorf("BackoffWithBase(%s, %s, %d) = %s, want %s",
				tt.base, tt.max, tt.retryCount, got, tt.want)
		}
	}
}
