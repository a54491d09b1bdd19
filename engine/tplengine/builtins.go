package tplengine

import (
	"time"

	"github.com/fluxline-dev/fluxline/engine/document"
)

const (
	dateFormat = "2006-01-02"
	nowFormat  = "2006-01-02T15:04:05Z"
)

// builtin resolves body as a built-in date/time name. It reports false if
// body does not name a built-in, so the caller falls through to a context
// path lookup.
func (e *Engine) builtin(body string, ctx map[string]any) (string, bool) {
	now := e.clock().UTC()

	switch body {
	case "now":
		return now.Format(nowFormat), true
	case "now_minus_1h":
		return now.Add(-1 * time.Hour).Format(nowFormat), true
	case "now_minus_6h":
		return now.Add(-6 * time.Hour).Format(nowFormat), true
	case "now_minus_12h":
		return now.Add(-12 * time.Hour).Format(nowFormat), true
	case "now_minus_24h":
		return now.Add(-24 * time.Hour).Format(nowFormat), true
	case "today_utc":
		return now.Format(dateFormat), true
	case "yesterday_utc":
		return now.AddDate(0, 0, -1).Format(dateFormat), true
	case "tomorrow_utc":
		return now.AddDate(0, 0, 1).Format(dateFormat), true
	}

	local := e.userLocalNow(ctx)
	switch body {
	case "today", "today_local":
		return local.Format(dateFormat), true
	case "tomorrow", "tomorrow_local":
		return local.AddDate(0, 0, 1).Format(dateFormat), true
	case "yesterday", "yesterday_local":
		return local.AddDate(0, 0, -1).Format(dateFormat), true
	case "two_days_ago":
		return local.AddDate(0, 0, -2).Format(dateFormat), true
	case "this_week_start":
		return startOfWeek(local).Format(dateFormat), true
	case "this_week_end":
		return startOfWeek(local).AddDate(0, 0, 6).Format(dateFormat), true
	}

	return "", false
}

// userLocalNow returns the current instant in the timezone named by
// context.user.timezone, falling back to UTC (with a warning) when the
// field is absent or names an unrecognized zone.
func (e *Engine) userLocalNow(ctx map[string]any) time.Time {
	now := e.clock()
	tzName, ok := document.Get(ctx, "user.timezone")
	tz, _ := tzName.(string)
	if !ok || tz == "" {
		e.logger().Warn("no user timezone, falling back to UTC")
		return now.UTC()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.logger().Warn("unknown user timezone, falling back to UTC", "timezone", tz, "error", err.Error())
		return now.UTC()
	}
	return now.In(loc)
}

// startOfWeek returns the Monday of t's week at t's own time-of-day (the
// clock component is kept, not truncated; callers format the date only).
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	// time.Sunday == 0; treat Monday as the first day of the week.
	daysSinceMonday := (weekday + 6) % 7
	return t.AddDate(0, 0, -daysSinceMonday)
}
