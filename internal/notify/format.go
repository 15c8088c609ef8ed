package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// reserved is the MarkdownV2 set that must be backslash-escaped outside code spans.
const reserved = "_*[]()~`>#+-=|{}.!"

func isReserved(r rune) bool { return strings.ContainsRune(reserved, r) }

// EscapeMarkdownV2 escapes every reserved character in text.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, r := range text {
		if isReserved(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeAroundCodeSpans escapes reserved characters outside `code spans`.
// A backslash outside a code span passes through together with the next rune.
func escapeAroundCodeSpans(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)

	runes := []rune(text)
	inCode := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '`':
			inCode = !inCode
			b.WriteRune(r)
		case r == '\\' && !inCode:
			b.WriteRune(r)
			if i+1 < len(runes) {
				i++
				b.WriteRune(runes[i])
			}
		case inCode:
			b.WriteRune(r)
		default:
			if isReserved(r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatOverdue renders the first alert for a monitor that missed its window.
func FormatOverdue(slug string, intervalSecs uint64, lastPing, now int64) string {
	late := max(now-lastPing-int64(intervalSecs), 0)
	raw := fmt.Sprintf("⚠️ OVERDUE: `%s` | interval: %s | last: %s | %s late",
		slug, FormatDuration(intervalSecs), FormatClock(lastPing), FormatDuration(uint64(late)))
	return escapeAroundCodeSpans(raw)
}

// FormatRepeat renders the hourly reminder for a monitor that is still overdue.
func FormatRepeat(slug string, downtimeSecs uint64) string {
	raw := fmt.Sprintf("⚠️ STILL OVERDUE: `%s` | down %s", slug, FormatDuration(downtimeSecs))
	return escapeAroundCodeSpans(raw)
}

func FormatRecovery(slug string, downtimeSecs uint64) string {
	raw := fmt.Sprintf("✅ RECOVERED: `%s` \\(was down %s\\)", slug, FormatDuration(downtimeSecs))
	return escapeAroundCodeSpans(raw)
}

var durationUnits = []struct {
	suffix string
	secs   uint64
}{
	{"d", 86400},
	{"h", 3600},
	{"m", 60},
	{"s", 1},
}

// FormatDuration renders seconds as a compact string such as "1h30m" or "2d5s".
func FormatDuration(secs uint64) string {
	if secs == 0 {
		return "0s"
	}
	var b strings.Builder
	for _, u := range durationUnits {
		if n := secs / u.secs; n > 0 {
			b.WriteString(strconv.FormatUint(n, 10))
			b.WriteString(u.suffix)
			secs -= n * u.secs
		}
	}
	return b.String()
}

// FormatClock renders epoch seconds as "HH:MM UTC", or "unknown" when the
// timestamp falls outside years 0000-9999.
func FormatClock(epoch int64) string {
	if epoch < minClockEpoch || epoch > maxClockEpoch {
		return "unknown"
	}
	return time.Unix(epoch, 0).UTC().Format("15:04") + " UTC"
}

const (
	minClockEpoch int64 = -62167219200 // 0000-01-01T00:00:00Z
	maxClockEpoch int64 = 253402300799 // 9999-12-31T23:59:59Z
)
