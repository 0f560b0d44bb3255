package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

// Clock supplies the current time and the clinic's calendar day
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// SystemClock returns a clock in loc backed by time.Now
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Location: loc, Now: time.Now}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// Today returns the current calendar day in the clinic's time zone
func (c Clock) Today() string {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return c.now().In(loc).Format(entities.VisitDateLayout)
}

// ResolveDate validates a YYYY-MM-DD day, defaulting to today when blank
func (c Clock) ResolveDate(day string) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return c.Today(), nil
	}
	parsed, err := time.Parse(entities.VisitDateLayout, day)
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid date %q: want YYYY-MM-DD", day))
	}
	return parsed.Format(entities.VisitDateLayout), nil
}
