package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitchell6/trello-weekly-report/internal/models"
	"go.uber.org/zap"
)

var (
	ErrListNotFound = errors.New("list not found on board")
	ErrInvalidRange = errors.New("invalid date range")
)

const dayFormat = "2006-01-02"

// Range is the reporting window, inclusive on both ends.
type Range struct {
	Start time.Time
	End   time.Time
}

// Task is one row of the rendered report.
type Task struct {
	Name        string    `json:"name"`
	Labels      []string  `json:"labels"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completedAt"`
	URL         string    `json:"url"`
}

// Report is the result of one generation run.
type Report struct {
	BoardID string    `json:"boardId"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Tasks   []Task    `json:"tasks"`
	Count   int       `json:"count"`
}

// ParseRange validates and parses the reporting window before any network
// call happens. Dates come in as YYYY-MM-DD (a bare end date extends to the
// end of that day) or full RFC3339. Both empty selects the current week,
// most recent Sunday through the next.
func ParseRange(startStr, endStr string) (Range, error) {
	if startStr == "" && endStr == "" {
		return CurrentWeek(time.Now().UTC()), nil
	}
	if startStr == "" || endStr == "" {
		return Range{}, fmt.Errorf("%w: both start and end are required", ErrInvalidRange)
	}

	start, err := parseDate(startStr, false)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad start date %q", ErrInvalidRange, startStr)
	}
	end, err := parseDate(endStr, true)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad end date %q", ErrInvalidRange, endStr)
	}
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, startStr, endStr)
	}
	return Range{Start: start, End: end}, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// CurrentWeek returns the week containing now: most recent Sunday 00:00
// through the end of the following Saturday.
func CurrentWeek(now time.Time) Range {
	daysSinceSunday := int(now.Weekday())
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceSunday)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return Range{Start: start, End: end}
}

// Contains reports whether t falls inside the range, boundaries included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// FindList resolves a list by case-insensitive name match.
func FindList(lists []models.List, name string) (models.List, error) {
	for _, l := range lists {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return models.List{}, fmt.Errorf("%w: %q", ErrListNotFound, name)
}

// Filter returns the cards sitting in doneListID whose last activity falls
// inside rng, in input order. A card with an unparsable timestamp is skipped
// with a warning rather than failing the whole report.
func Filter(cards []models.Card, doneListID string, rng Range) []Task {
	tasks := make([]Task, 0)
	for _, c := range cards {
		if c.IDList != doneListID {
			continue
		}
		activity, err := parseActivity(c.DateLastActivity)
		if err != nil {
			zap.L().Warn("Skipping card with unparsable dateLastActivity",
				zap.String("cardID", c.ID), zap.String("value", c.DateLastActivity))
			continue
		}
		if !rng.Contains(activity) {
			continue
		}
		tasks = append(tasks, Task{
			Name:        c.Name,
			Labels:      labelNames(c.Labels),
			Status:      "Done",
			CompletedAt: activity,
			URL:         c.URL,
		})
	}
	return tasks
}

// DoingActivity returns in-progress cards touched inside the window, tagged
// "Doing" so they render apart from completed work. An empty doingListID
// (board has no such list) yields nothing.
func DoingActivity(cards []models.Card, doingListID string, rng Range) []Task {
	if doingListID == "" {
		return nil
	}
	tasks := make([]Task, 0)
	for _, c := range cards {
		if c.IDList != doingListID {
			continue
		}
		activity, err := parseActivity(c.DateLastActivity)
		if err != nil || !rng.Contains(activity) {
			continue
		}
		tasks = append(tasks, Task{
			Name:        c.Name,
			Labels:      labelNames(c.Labels),
			Status:      "Doing",
			CompletedAt: activity,
			URL:         c.URL,
		})
	}
	return tasks
}

func parseActivity(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dayFormat, s)
}

func labelNames(labels []models.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}
