package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseSlug_Valid(t *testing.T) {
	for _, in := range []string{"my-service", "a", "abc123", "nightly-backup-2", strings.Repeat("a", 64)} {
		s, err := ParseSlug(in)
		if err != nil {
			t.Fatalf("ParseSlug(%q): %v", in, err)
		}
		if s.String() != in {
			t.Fatalf("String()=%q want %q", s.String(), in)
		}
	}
}

func TestParseSlug_Rejects(t *testing.T) {
	cases := []struct {
		in   string
		kind SlugErrorKind
	}{
		{"", SlugEmpty},
		{strings.Repeat("a", 65), SlugTooLong},
		{"Hello", SlugInvalidCharacters},
		{"my service", SlugInvalidCharacters},
		{"svc_a", SlugInvalidCharacters},
		{"-service", SlugInvalidHyphenPosition},
		{"service-", SlugInvalidHyphenPosition},
		{"-", SlugInvalidHyphenPosition},
	}
	for _, c := range cases {
		_, err := ParseSlug(c.in)
		var se *SlugError
		if !errors.As(err, &se) {
			t.Fatalf("ParseSlug(%q): want *SlugError, got %v", c.in, err)
		}
		if se.Kind != c.kind {
			t.Fatalf("ParseSlug(%q): kind=%d want %d", c.in, se.Kind, c.kind)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseSlug(%q): error should match ErrValidation", c.in)
		}
	}

	_, err := ParseSlug(strings.Repeat("a", 65))
	var se *SlugError
	errors.As(err, &se)
	if se.Len != 65 {
		t.Fatalf("TooLong len=%d want 65", se.Len)
	}
}

func TestSlug_RoundTrip(t *testing.T) {
	orig, err := ParseSlug("my-slug")
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseSlug(orig.String())
	if err != nil {
		t.Fatal(err)
	}
	if back != orig {
		t.Fatalf("round trip mismatch: %v vs %v", back, orig)
	}

	b, _ := json.Marshal(orig)
	var decoded Slug
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != orig {
		t.Fatalf("json round trip mismatch: %v", decoded)
	}
	if err := json.Unmarshal([]byte(`"Bad"`), &decoded); err == nil {
		t.Fatalf("expected invalid slug to fail unmarshal")
	}
}

func testMonitor(nextDue int64, paused *bool) *Monitor {
	return &Monitor{
		Slug:           "test",
		IntervalSecs:   300,
		LastPing:       1000,
		NextDue:        nextDue,
		CheckPartition: CheckPartition,
		CreatedAt:      1000,
		Paused:         paused,
		ExpiresAt:      1000 + TTLSecs,
	}
}

func boolp(b bool) *bool { return &b }

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		nextDue int64
		paused  *bool
		now     int64
		want    Status
	}{
		{"ok", 2000, nil, 1500, StatusOK},
		{"due exactly now is ok", 1500, nil, 1500, StatusOK},
		{"overdue", 1000, nil, 1500, StatusOverdue},
		{"paused beats overdue", 500, boolp(true), 1500, StatusPaused},
		{"paused while ok", 2000, boolp(true), 1500, StatusPaused},
		{"paused false is ok", 2000, boolp(false), 1500, StatusOK},
		{"paused false overdue", 1000, boolp(false), 1500, StatusOverdue},
	}
	for _, c := range cases {
		if got := DeriveStatus(testMonitor(c.nextDue, c.paused), c.now); got != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got, c.want)
		}
	}
}

func TestNewPingAndFail(t *testing.T) {
	slug, _ := ParseSlug("svc-a")
	for _, iv := range []uint64{30, 300, 86400, MaxIntervalSecs} {
		for _, now := range []int64{0, 1_700_000_000} {
			m := NewPing(slug, iv, now)
			if m.NextDue != m.LastPing+int64(m.IntervalSecs) {
				t.Fatalf("ping: next_due=%d last_ping=%d interval=%d", m.NextDue, m.LastPing, m.IntervalSecs)
			}
			if m.ExpiresAt != now+TTLSecs || m.CreatedAt != now || m.CheckPartition != CheckPartition {
				t.Fatalf("ping: unexpected row %+v", m)
			}
			f := NewFail(slug, iv, now)
			if f.NextDue != 0 || f.IntervalSecs != iv {
				t.Fatalf("fail: unexpected row %+v", f)
			}
		}
	}
}

func TestParseInterval(t *testing.T) {
	ok := map[string]uint64{
		"5m":     300,
		"1h":     3600,
		"30s":    30,
		"1h30m":  5400,
		"300":    300,
		"2d":     172800,
		"1w":     604800,
		"365d":   MaxIntervalSecs,
		" 90s  ": 90,
	}
	for in, want := range ok {
		got, err := ParseInterval(in)
		if err != nil || got != want {
			t.Fatalf("ParseInterval(%q)=%d,%v want %d", in, got, err, want)
		}
	}

	bad := map[string]IntervalErrorKind{
		"":      IntervalUnparseable,
		"foo":   IntervalUnparseable,
		"-5":    IntervalUnparseable,
		"5x":    IntervalUnparseable,
		"5m30":  IntervalUnparseable,
		"29":    IntervalTooShort,
		"10s":   IntervalTooShort,
		"366d":  IntervalTooLong,
		"9999w": IntervalTooLong,
	}
	for in, kind := range bad {
		_, err := ParseInterval(in)
		var ie *IntervalError
		if !errors.As(err, &ie) || ie.Kind != kind {
			t.Fatalf("ParseInterval(%q): want kind %d, got %v", in, kind, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("ParseInterval(%q): should match ErrValidation", in)
		}
	}
}
