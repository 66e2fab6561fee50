package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/datapilot/pkg/models"
)

// ErrInvalidTime is returned for a time of day outside 00:00-23:59.
var ErrInvalidTime = errors.New("invalid time of day")

// CronSpec builds the standard five field expression for a frequency fired
// at timeOfDay ("HH:MM"). A time without a colon means midnight and an
// unknown frequency is treated as daily.
func CronSpec(frequency models.Frequency, timeOfDay string) (string, error) {
	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return "", err
	}

	switch models.Frequency(strings.ToLower(string(frequency))) {
	case models.FrequencyWeekly:
		return fmt.Sprintf("%d %d * * 1", minute, hour), nil
	case models.FrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour), nil
	default:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
}

func parseTimeOfDay(value string) (int, int, error) {
	value = strings.TrimSpace(value)

	hourText, minuteText, found := strings.Cut(value, ":")
	if !found {
		return 0, 0, nil
	}

	hour, err := strconv.Atoi(strings.TrimSpace(hourText))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	minuteText, _, _ = strings.Cut(minuteText, ":")

	minute, err := strconv.Atoi(strings.TrimSpace(minuteText))
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}

	return hour, minute, nil
}
