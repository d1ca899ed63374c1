package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
)

var (
	todayPattern    = regexp.MustCompile(`今天\s*(\d{1,2}):(\d{2})`)
	minutesPattern  = regexp.MustCompile(`(\d+)\s*分钟前`)
	hoursPattern    = regexp.MustCompile(`(\d+)\s*小时前`)
	monthDayPattern = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日\s*(\d{1,2}):(\d{2})`)
	fullPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
	shortPattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)
)

// DateParser resolves the site's raw date strings to RFC3339 timestamps.
// The patterns are tried in order, first match wins; an unrecognized
// string is kept byte-for-byte unchanged.
type DateParser struct {
	clock  harvest.Clock
	logger *zap.Logger
}

// NewDateParser builds a parser that resolves relative forms against the
// given clock.
func NewDateParser(clock harvest.Clock, logger *zap.Logger) *DateParser {
	return &DateParser{clock: clock, logger: logger}
}

// Parse converts raw to RFC3339 when one of the known patterns matches.
func (p *DateParser) Parse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return s
	}

	now := p.clock.Now()
	if t, ok := p.resolve(s, now); ok {
		return t.Format(time.RFC3339)
	}
	p.logger.Warn("unrecognized date string", zap.String("raw", raw))
	return raw
}

func (p *DateParser) resolve(s string, now time.Time) (time.Time, bool) {
	if m := todayPattern.FindStringSubmatch(s); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location()), true
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Minute), true
	}
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Hour), true
	}
	if m := monthDayPattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		hh, _ := strconv.Atoi(m[3])
		mm, _ := strconv.Atoi(m[4])
		return time.Date(now.Year(), time.Month(month), day, hh, mm, 0, 0, now.Location()), true
	}
	if fullPattern.MatchString(s) {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, now.Location()); err == nil {
			return t, true
		}
	}
	if shortPattern.MatchString(s) {
		if t, err := time.ParseInLocation("2006-01-02 15:04", s, now.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
