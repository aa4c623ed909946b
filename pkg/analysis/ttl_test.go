package analysis

import (
	"testing"
	"time"
)

func i64(v int64) *int64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func TestTimeToLive(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		age       *int64
		date      *time.Time
		expiresAt *time.Time
		maxAge    *int64
		now       time.Time
		want      float64
		wantOK    bool
	}{
		{
			name:   "age and max-age",
			age:    i64(10),
			maxAge: i64(25),
			now:    t0,
			want:   15,
			wantOK: true,
		},
		{
			name:   "age and max-age ignore now",
			age:    i64(10),
			maxAge: i64(25),
			now:    t0.Add(1000 * time.Hour),
			want:   15,
			wantOK: true,
		},
		{
			name:      "expires fallback with age",
			age:       i64(10),
			expiresAt: tp(t0.Add(25 * time.Second)),
			now:       t0.Add(10 * time.Second),
			want:      15,
			wantOK:    true,
		},
		{
			name:   "max-age zero is honoured",
			age:    i64(5),
			maxAge: i64(0),
			now:    t0,
			want:   -5,
			wantOK: true,
		},
		{
			name:   "age derived from date",
			date:   tp(t0),
			maxAge: i64(60),
			now:    t0.Add(20 * time.Second),
			want:   40,
			wantOK: true,
		},
		{
			name:   "no age no date means fresh",
			maxAge: i64(60),
			now:    t0,
			want:   60,
			wantOK: true,
		},
		{
			name:      "max-age wins over expires",
			age:       i64(0),
			expiresAt: tp(t0.Add(time.Hour)),
			maxAge:    i64(30),
			now:       t0,
			want:      30,
			wantOK:    true,
		},
		{
			name:      "stale response is negative",
			age:       i64(100),
			date:      tp(t0),
			expiresAt: tp(t0.Add(60 * time.Second)),
			now:       t0.Add(100 * time.Second),
			want:      -40,
			wantOK:    true,
		},
		{
			name:   "nothing resolvable",
			age:    i64(10),
			date:   tp(t0),
			now:    t0,
			wantOK: false,
		},
		{
			name:   "all absent",
			now:    t0,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TimeToLive(tt.age, tt.date, tt.expiresAt, tt.maxAge, tt.now)
			if ok != tt.wantOK {
				t.Fatalf("TimeToLive() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("TimeToLive() = %v, want %v", got, tt.want)
			}
		})
	}
}

// With only Date and Expires the result tracks now: it is the time left
// until Expires, not the freshness lifetime Expires - Date.
func TestTimeToLive_DateAndExpiresDependOnNow(t *testing.T) {
	date := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expires := date.Add(15 * time.Second)

	for _, elapsed := range []int64{0, 5, 15, 30} {
		now := date.Add(time.Duration(elapsed) * time.Second)
		got, ok := TimeToLive(nil, &date, &expires, nil, now)
		if !ok {
			t.Fatalf("elapsed %ds: ok = false", elapsed)
		}
		if want := float64(15 - elapsed); got != want {
			t.Errorf("elapsed %ds: TimeToLive() = %v, want %v", elapsed, got, want)
		}
	}
}

func TestTimeToLive_MillisecondPrecision(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got, ok := TimeToLive(nil, &t0, nil, i64(10), t0.Add(1500*time.Millisecond))
	if !ok || got != 8.5 {
		t.Errorf("TimeToLive() = (%v, %v), want (8.5, true)", got, ok)
	}
}
