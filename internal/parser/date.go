package parser

import (
	"strconv"
	"strings"
	"time"
)

// rfc822Layouts covers the variants gofeed/feed authors actually emit:
// two- and four-digit years, with or without a named/numeric zone.
var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
}

// parsePubDate normalizes raw into a UTC time.Time, trying RFC-822 variants
// then a permissive W3C-DTF grammar. The host's local timezone never
// influences the result — all offsets come from the input string itself,
// or default to UTC when absent.
func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range rfc822Layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}

	if t, ok := parseW3CDTF(raw); ok {
		return t.UTC(), true
	}

	return time.Time{}, false
}

// parseW3CDTF implements the "YYYY[-MM[-DD[Thh:mm[:ss][TZD]]]]" grammar,
// where TZD is "Z" or "±hh:mm". Missing trailing fields default to their
// minimum (month/day 1, time 00:00:00) and a missing zone is UTC.
func parseW3CDTF(raw string) (time.Time, bool) {
	s := raw
	year, month, day := 1, 1, 1
	hour, minute, sec := 0, 0, 0
	loc := time.UTC

	if len(s) < 4 {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return time.Time{}, false
	}
	year = y
	s = s[4:]

	if len(s) == 0 {
		return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
	}
	if s[0] != '-' {
		return time.Time{}, false
	}
	s = s[1:]
	if len(s) < 2 {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, false
	}
	month = m
	s = s[2:]

	if len(s) == 0 {
		return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
	}
	if s[0] != '-' {
		return time.Time{}, false
	}
	s = s[1:]
	if len(s) < 2 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, false
	}
	day = d
	s = s[2:]

	if len(s) == 0 {
		return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
	}
	if s[0] != 'T' {
		return time.Time{}, false
	}
	s = s[1:]
	if len(s) < 2 {
		return time.Time{}, false
	}
	hh, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, false
	}
	hour = hh
	s = s[2:]

	if len(s) > 0 && s[0] == ':' {
		s = s[1:]
		if len(s) < 2 {
			return time.Time{}, false
		}
		mm, err := strconv.Atoi(s[:2])
		if err != nil {
			return time.Time{}, false
		}
		minute = mm
		s = s[2:]

		if len(s) > 0 && s[0] == ':' {
			s = s[1:]
			if len(s) < 2 {
				return time.Time{}, false
			}
			ss, err := strconv.Atoi(s[:2])
			if err != nil {
				return time.Time{}, false
			}
			sec = ss
			s = s[2:]
		}
	}

	offset := 0
	switch {
	case len(s) == 0:
	case s == "Z":
	case len(s) == 6 && (s[0] == '+' || s[0] == '-'):
		oh, err1 := strconv.Atoi(s[1:3])
		om, err2 := strconv.Atoi(s[4:6])
		if err1 != nil || err2 != nil {
			return time.Time{}, false
		}
		offset = oh*3600 + om*60
		if s[0] == '-' {
			offset = -offset
		}
	default:
		return time.Time{}, false
	}

	loc = time.FixedZone("", offset)
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
}
