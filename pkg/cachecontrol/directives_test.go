package cachecontrol

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func int64p(v int64) *int64 { return &v }

func TestParse_NumericDirectives(t *testing.T) {
	tests := []struct {
		name  string
		field func(*Directives) *int64
	}{
		{name: DirectiveMaxAge, field: func(d *Directives) *int64 { return d.MaxAge }},
		{name: DirectiveSharedMaxAge, field: func(d *Directives) *int64 { return d.SharedMaxAge }},
		{name: DirectiveMinFresh, field: func(d *Directives) *int64 { return d.MinFresh }},
		{name: DirectiveStaleWhileRevalidate, field: func(d *Directives) *int64 { return d.StaleWhileRevalidate }},
		{name: DirectiveStaleIfError, field: func(d *Directives) *int64 { return d.StaleIfError }},
		{name: DirectiveMaxStale, field: func(d *Directives) *int64 { return d.MaxStaleDuration }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, n := range []int64{0, 1, 25, 3600, 31536000} {
				d, err := Parse(fmt.Sprintf("%s=%d", tt.name, n))
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				got := tt.field(d)
				if got == nil || *got != n {
					t.Errorf("%s=%d parsed as %v", tt.name, n, got)
				}
			}

			for _, bad := range []string{"-1", "-3600", "abc", "", "1.5", "+5", "12abc"} {
				d, err := Parse(fmt.Sprintf("%s=%s", tt.name, bad))
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				if got := tt.field(d); got != nil {
					t.Errorf("%s=%s parsed as %d, want nil", tt.name, bad, *got)
				}
			}
		})
	}
}

func TestParse_BooleanDirectives(t *testing.T) {
	tests := []struct {
		header string
		field  func(*Directives) bool
	}{
		{"public", func(d *Directives) bool { return d.Public }},
		{"private", func(d *Directives) bool { return d.Private }},
		{"no-store", func(d *Directives) bool { return d.NoStore }},
		{"no-cache", func(d *Directives) bool { return d.NoCache }},
		{"must-revalidate", func(d *Directives) bool { return d.MustRevalidate }},
		{"immutable", func(d *Directives) bool { return d.Immutable }},
		{"proxy-revalidate", func(d *Directives) bool { return d.ProxyRevalidate }},
		{"no-transform", func(d *Directives) bool { return d.NoTransform }},
		{"only-if-cached", func(d *Directives) bool { return d.OnlyIfCached }},
		{"max-stale", func(d *Directives) bool { return d.MaxStale }},
		{"NO-STORE", func(d *Directives) bool { return d.NoStore }},
		{`no-cache="Set-Cookie"`, func(d *Directives) bool { return d.NoCache }},
		{"private=x-user", func(d *Directives) bool { return d.Private }},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			d, err := Parse(tt.header)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !tt.field(d) {
				t.Errorf("Parse(%q) flag not set", tt.header)
			}
			if len(d.Extensions) != 0 {
				t.Errorf("Extensions = %v, want empty", d.Extensions)
			}
		})
	}
}

func TestParse_Combined(t *testing.T) {
	d, err := Parse("public, max-age=3600, s-maxage=7200, stale-while-revalidate=60, must-revalidate")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !d.Public {
		t.Error("Public not set")
	}
	if d.MaxAge == nil || *d.MaxAge != 3600 {
		t.Errorf("MaxAge = %v, want 3600", d.MaxAge)
	}
	if d.SharedMaxAge == nil || *d.SharedMaxAge != 7200 {
		t.Errorf("SharedMaxAge = %v, want 7200", d.SharedMaxAge)
	}
	if d.StaleWhileRevalidate == nil || *d.StaleWhileRevalidate != 60 {
		t.Errorf("StaleWhileRevalidate = %v, want 60", d.StaleWhileRevalidate)
	}
	if !d.MustRevalidate {
		t.Error("MustRevalidate not set")
	}
	if d.Private || d.NoStore || d.NoCache || d.Immutable {
		t.Error("unexpected flags set")
	}
}

func TestParse_EmptyHeader(t *testing.T) {
	for _, header := range []string{"", "   ", "\t"} {
		d, err := Parse(header)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", header, err)
		}
		if !d.IsEmpty() {
			t.Errorf("Parse(%q) = %+v, want empty", header, d)
		}
		if d.MaxAge != nil || d.Public {
			t.Errorf("Parse(%q) set fields", header)
		}
		if d.Extensions == nil {
			t.Errorf("Parse(%q) Extensions is nil", header)
		}
	}
}

func TestParse_Extensions(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		ext       string
		wantValue string
		hasValue  bool
	}{
		{name: "valueless", header: "max-age=3600, durable", ext: "durable"},
		{name: "with value", header: "max-age=3600, fishiness=42", ext: "fishiness", wantValue: "42", hasValue: true},
		{name: "quoted value", header: `max-age=3600, foo="bar baz"`, ext: "foo", wantValue: "bar baz", hasValue: true},
		{name: "uppercase name", header: "max-age=3600, Durable", ext: "durable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.header)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if d.MaxAge == nil || *d.MaxAge != 3600 {
				t.Errorf("MaxAge = %v, want 3600", d.MaxAge)
			}

			value, hasValue, ok := d.Extension(tt.ext)
			if !ok {
				t.Fatalf("extension %q missing, got %v", tt.ext, d.Extensions)
			}
			if hasValue != tt.hasValue || value != tt.wantValue {
				t.Errorf("Extension(%q) = (%q, %v), want (%q, %v)", tt.ext, value, hasValue, tt.wantValue, tt.hasValue)
			}
			if _, present := d.Extensions[tt.ext]; !present {
				t.Errorf("Extensions key %q not lowercased: %v", tt.ext, d.Extensions)
			}
		})
	}
}

func TestParse_MaxStale(t *testing.T) {
	d := MustParse("max-stale")
	if !d.MaxStale || d.MaxStaleDuration != nil {
		t.Errorf("max-stale: MaxStale=%v MaxStaleDuration=%v", d.MaxStale, d.MaxStaleDuration)
	}

	d = MustParse("max-stale=120")
	if !d.MaxStale || d.MaxStaleDuration == nil || *d.MaxStaleDuration != 120 {
		t.Errorf("max-stale=120: MaxStale=%v MaxStaleDuration=%v", d.MaxStale, d.MaxStaleDuration)
	}

	d = MustParse("max-stale=0")
	if !d.MaxStale || d.MaxStaleDuration == nil || *d.MaxStaleDuration != 0 {
		t.Errorf("max-stale=0: MaxStale=%v MaxStaleDuration=%v", d.MaxStale, d.MaxStaleDuration)
	}
}

func TestParse_QuotedNumeric(t *testing.T) {
	d := MustParse(`max-age="600"`)
	if d.MaxAge == nil || *d.MaxAge != 600 {
		t.Errorf("MaxAge = %v, want 600", d.MaxAge)
	}
}

// Trailing characters make the whole value malformed; no numeric prefix is
// salvaged.
func TestParse_TrailingGarbageIsAbsent(t *testing.T) {
	d := MustParse("public, max-age=3600x, s-maxage=60")
	if d.MaxAge != nil {
		t.Errorf("MaxAge = %d, want nil", *d.MaxAge)
	}
	if d.SharedMaxAge == nil || *d.SharedMaxAge != 60 {
		t.Errorf("SharedMaxAge = %v, want 60", d.SharedMaxAge)
	}
	if !d.Public {
		t.Error("Public = false, want true")
	}
}

func TestParse_LastOccurrenceWins(t *testing.T) {
	d := MustParse("max-age=10, max-age=20")
	if d.MaxAge == nil || *d.MaxAge != 20 {
		t.Errorf("MaxAge = %v, want 20", d.MaxAge)
	}
}

func TestParse_Overflow(t *testing.T) {
	d := MustParse("max-age=99999999999999999999999")
	if d.MaxAge == nil || *d.MaxAge != math.MaxInt64 {
		t.Errorf("MaxAge = %v, want MaxInt64", d.MaxAge)
	}
}

func TestParse_NeverReturnsMalformedForRegularInput(t *testing.T) {
	inputs := []string{
		",,,",
		"=",
		"==5",
		";",
		`"quoted"`,
		"max-age=60;private",
		"1234",
	}
	for _, in := range inputs {
		if _, err := Parse(in); errors.Is(err, ErrMalformedDirective) {
			t.Errorf("Parse(%q) returned %v", in, err)
		}
	}
}

func TestDirectives_NilReceiver(t *testing.T) {
	var d *Directives
	if !d.IsEmpty() {
		t.Error("nil Directives should be empty")
	}
	if _, _, ok := d.Extension("x"); ok {
		t.Error("nil Directives should have no extensions")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(recognized) {
		t.Fatalf("Names() has %d entries, recognized table has %d", len(names), len(recognized))
	}
	for _, n := range names {
		if _, ok := recognized[n]; !ok {
			t.Errorf("Names() contains unrecognised %q", n)
		}
	}
}

func TestMustParse_Value(t *testing.T) {
	want := int64p(1800)
	if got := MustParse("max-age=1800").MaxAge; got == nil || *got != *want {
		t.Errorf("MaxAge = %v, want %d", got, *want)
	}
}

func TestDirectives_String(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"PUBLIC, max-age=60", "max-age=60, public"},
		{"s-maxage=3600, public, durable", "s-maxage=3600, public, durable"},
		{"max-stale", "max-stale"},
		{"max-stale=30, no-store", "max-stale=30, no-store"},
		{"stale-while-revalidate=10, must-revalidate, x-b, x-a=\"1\"", "must-revalidate, stale-while-revalidate=10, x-a=1, x-b"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			d := MustParse(tt.header)
			if got := d.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			// canonical output parses to the same directives
			if got := MustParse(d.String()).String(); got != tt.want {
				t.Errorf("String() is not stable: %q", got)
			}
		})
	}

	var nilDirectives *Directives
	if nilDirectives.String() != "" {
		t.Error("nil Directives should render empty")
	}
}
