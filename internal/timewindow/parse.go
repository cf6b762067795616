package timewindow

import (
	"fmt"
	"strconv"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// ParseTime parses a timestamp string, supporting Unix seconds, RFC3339
// and human-readable dates. Values without a timezone are treated as
// UTC. fieldName is used for error messages (e.g., "start_time").
func ParseTime(value, fieldName string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s timestamp is required", fieldName)
	}

	// First, try parsing as Unix timestamp
	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, fmt.Errorf("%s timestamp must be non-negative", fieldName)
		}
		return time.Unix(unix, 0).UTC(), nil
	}

	// Then as RFC3339
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}

	// Finally as human-readable date
	parser := dps.Parser{}
	cfg := &dps.Configuration{
		// CurrentPeriod interprets bare dates like "March" as the
		// current period, which reads naturally in a triage question
		PreferredDateSource: dps.CurrentPeriod,
		DefaultTimezone:     time.UTC,
	}

	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a Unix timestamp, RFC3339 or human-readable date: %v", fieldName, err)
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("%s could not be parsed as a valid date: %s", fieldName, value)
	}

	return parsed.Time.UTC(), nil
}

// ParseOptionalTime parses an optional timestamp string. An empty value
// yields a nil time without error.
func ParseOptionalTime(value, fieldName string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := ParseTime(value, fieldName)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
