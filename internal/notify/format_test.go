package notify

import (
	"strings"
	"testing"
)

func TestEscapeMarkdownV2(t *testing.T) {
	cases := map[string]string{
		"hello":  "hello",
		"a.b":    `a\.b`,
		"a_b*c":  `a\_b\*c`,
		"(x)!":   `\(x\)\!`,
		"1+1=2":  `1\+1\=2`,
		"`code`": "\\`code\\`",
	}
	for in, want := range cases {
		if got := EscapeMarkdownV2(in); got != want {
			t.Fatalf("EscapeMarkdownV2(%q)=%q want %q", in, got, want)
		}
	}
}

func TestEscapeAroundCodeSpans(t *testing.T) {
	got := escapeAroundCodeSpans("hello `my-slug` world.end")
	if want := "hello `my-slug` world\\.end"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	// already escaped sequences are not escaped twice
	if got := escapeAroundCodeSpans(`a \(b\) c.`); got != `a \(b\) c\.` {
		t.Fatalf("pre-escaped: %q", got)
	}

	// an unterminated span runs to the end
	if got := escapeAroundCodeSpans("x. `a.b"); got != "x\\. `a.b" {
		t.Fatalf("unterminated: %q", got)
	}
}

func TestFormatOverdue(t *testing.T) {
	// last ping 1970-01-01 00:16:40, interval 5m, now 10m after the ping
	got := FormatOverdue("my-job", 300, 1000, 1600)
	want := "⚠️ OVERDUE: `my-job` \\| interval: 5m \\| last: 00:16 UTC \\| 5m late"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}

	// pinged late but not yet past the interval: late clamps to 0s
	if got := FormatOverdue("my-job", 300, 1000, 1100); !strings.Contains(got, "0s late") {
		t.Fatalf("late should clamp to 0s: %q", got)
	}
}

func TestFormatRepeatAndRecovery(t *testing.T) {
	if got, want := FormatRepeat("my-job", 1380), "⚠️ STILL OVERDUE: `my-job` \\| down 23m"; got != want {
		t.Fatalf("repeat: got %q want %q", got, want)
	}
	if got, want := FormatRecovery("my-job", 1380), "✅ RECOVERED: `my-job` \\(was down 23m\\)"; got != want {
		t.Fatalf("recovery: got %q want %q", got, want)
	}
	// slug hyphens stay literal inside the code span
	if got := FormatRecovery("a-b-c", 0); !strings.Contains(got, "`a-b-c`") || !strings.Contains(got, "was down 0s") {
		t.Fatalf("recovery: %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[uint64]string{
		0:      "0s",
		1:      "1s",
		59:     "59s",
		60:     "1m",
		300:    "5m",
		5400:   "1h30m",
		3601:   "1h1s",
		86400:  "1d",
		90061:  "1d1h1m1s",
		172805: "2d5s",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d)=%q want %q", in, got, want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(0); got != "00:00 UTC" {
		t.Fatalf("epoch 0: %q", got)
	}
	if got := FormatClock(1_700_000_000); got != "22:13 UTC" {
		t.Fatalf("1.7e9: %q", got)
	}
	if got := FormatClock(1 << 60); got != "unknown" {
		t.Fatalf("far future: %q", got)
	}
}

func TestFormatClock_Bounds(t *testing.T) {
	if got := FormatClock(253402300799); got != "23:59 UTC" {
		t.Fatalf("max: %q", got)
	}
	if got := FormatClock(253402300800); got != "unknown" {
		t.Fatalf("past max: %q", got)
	}
	if got := FormatClock(-62167219200); got != "00:00 UTC" {
		t.Fatalf("min: %q", got)
	}
	if got := FormatClock(-62167219201); got != "unknown" {
		t.Fatalf("before min: %q", got)
	}
}
