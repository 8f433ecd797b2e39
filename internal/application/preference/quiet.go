package preference

import (
	"strconv"
	"strings"
	"time"

	"github.com/matching-sms-api/internal/domain"
)

// IsQuiet reports whether nowUTC falls inside the preferences' quiet window,
// evaluated in the preferences' timezone (defaultTZ when unset or unknown).
// Both bounds are inclusive. A window whose start is after its end wraps
// midnight. Without both bounds the gate is never quiet.
func IsQuiet(p *domain.NotificationPreferences, nowUTC time.Time, defaultTZ string) bool {
	if p == nil || p.QuietHoursStart == nil || p.QuietHoursEnd == nil {
		return false
	}
	qs, ok := parseClock(*p.QuietHoursStart)
	if !ok {
		return false
	}
	qe, ok := parseClock(*p.QuietHoursEnd)
	if !ok {
		return false
	}

	local := nowUTC.In(location(p.Timezone, defaultTZ))
	current := local.Hour()*60 + local.Minute()
	if qs <= qe {
		return current >= qs && current <= qe
	}
	return current >= qs || current <= qe
}

// parseClock parses "HH:MM" (seconds, if present, are ignored) into minutes past midnight.
func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func location(tz, defaultTZ string) *time.Location {
	for _, name := range []string{tz, defaultTZ} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
