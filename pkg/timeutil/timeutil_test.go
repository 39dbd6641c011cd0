package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestMaxDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{
			name:      "multiple values returns maximum",
			durations: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond},
			want:      500 * time.Millisecond,
		},
		{
			name:      "single value returns that value",
			durations: []time.Duration{300 * time.Millisecond},
			want:      300 * time.Millisecond,
		},
		{
			name:      "empty slice returns zero",
			durations: []time.Duration{},
			want:      0,
		},
		{
			name:      "all same values returns that value",
			durations: []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond},
			want:      100 * time.Millisecond,
		},
		{
			name:      "negative durations handled correctly",
			durations: []time.Duration{-100 * time.Millisecond, 50 * time.Millisecond, -200 * time.Millisecond},
			want:      50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDuration(tt.durations)
			if got != tt.want {
				t.Errorf("MaxDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 30*time.Second)

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{
			name:    "first retry waits the initial duration",
			attempt: 1,
			want:    time.Second,
		},
		{
			name:    "second retry doubles",
			attempt: 2,
			want:    2 * time.Second,
		},
		{
			name:    "third retry doubles again",
			attempt: 3,
			want:    4 * time.Second,
		},
		{
			name:    "delay is capped at max duration",
			attempt: 10,
			want:    30 * time.Second,
		},
		{
			name:    "attempt below one is clamped to the initial duration",
			attempt: 0,
			want:    time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExponentialBackoffDelay(tt.attempt, 0, nil, param)
			if got != tt.want {
				t.Errorf("ExponentialBackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestExponentialBackoffDelayJitter(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 30*time.Second)
	jitter := 500 * time.Millisecond
	rng := rand.New(rand.NewSource(42))

	// With jitter the delay must stay within [base, base+jitter)
	for attempt := 1; attempt <= 3; attempt++ {
		base := ExponentialBackoffDelay(attempt, 0, nil, param)
		got := ExponentialBackoffDelay(attempt, jitter, rng, param)
		if got < base || got >= base+jitter {
			t.Errorf("jittered delay %v outside [%v, %v)", got, base, base+jitter)
		}
	}

	// Same seed must reproduce the same sequence
	rngA := rand.New(rand.NewSource(7))
	rngB := rand.New(rand.NewSource(7))
	for attempt := 1; attempt <= 5; attempt++ {
		a := ExponentialBackoffDelay(attempt, jitter, rngA, param)
		b := ExponentialBackoffDelay(attempt, jitter, rngB, param)
		if a != b {
			t.Errorf("same seed produced different delays: %v vs %v", a, b)
		}
	}
}
