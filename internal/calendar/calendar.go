// Package calendar answers holiday and closed-day questions for the
// forecaster: Brazilian national holidays, including the Easter-based movable
// feasts, plus site overrides loaded from YAML.
package calendar

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lavapop/cashcast/internal/analytics"
)

// monthDayLayout is the key format of recurring entries.
const monthDayLayout = "01-02"

// Entry is one dated ("2025-03-04") or recurring ("12-24") calendar day.
type Entry struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

// File is the YAML override document.
//
//	national: true
//	holidays:
//	  - {date: "07-16", name: "Aniversário da cidade"}
//	closed_days:
//	  - {date: "12-25", name: "Natal"}
//	  - {date: "2025-03-04", name: "Reforma"}
//	closed_weekdays: [sunday]
type File struct {
	National       *bool    `yaml:"national"`
	Holidays       []Entry  `yaml:"holidays"`
	ClosedDays     []Entry  `yaml:"closed_days"`
	ClosedWeekdays []string `yaml:"closed_weekdays"`
}

// Calendar implements forecast.Calendar. It is safe for concurrent use.
type Calendar struct {
	national bool

	dated          map[string]string // YYYY-MM-DD
	recurring      map[string]string // MM-DD
	closedDated    map[string]string
	closedRecur    map[string]string
	closedWeekdays map[time.Weekday]bool

	mu    sync.Mutex
	years map[int]map[string]string
}

// New returns a calendar with the national holidays and no closed days.
func New() *Calendar {
	return &Calendar{
		national:       true,
		dated:          map[string]string{},
		recurring:      map[string]string{},
		closedDated:    map[string]string{},
		closedRecur:    map[string]string{},
		closedWeekdays: map[time.Weekday]bool{},
		years:          map[int]map[string]string{},
	}
}

// Load reads a YAML override file. An empty path returns New().
func Load(path string) (*Calendar, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a calendar from a YAML document.
func Parse(data []byte) (*Calendar, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	return FromFile(f)
}

// FromFile builds a calendar from a decoded override document.
func FromFile(f File) (*Calendar, error) {
	c := New()
	if f.National != nil {
		c.national = *f.National
	}
	for _, e := range f.Holidays {
		if err := c.AddHoliday(e.Date, e.Name); err != nil {
			return nil, err
		}
	}
	for _, e := range f.ClosedDays {
		if err := c.AddClosedDay(e.Date, e.Name); err != nil {
			return nil, err
		}
	}
	for _, name := range f.ClosedWeekdays {
		wd, err := parseWeekday(name)
		if err != nil {
			return nil, err
		}
		c.closedWeekdays[wd] = true
	}
	return c, nil
}

// AddHoliday registers an extra holiday, dated or recurring.
func (c *Calendar) AddHoliday(date, name string) error {
	return addEntry(c.dated, c.recurring, date, name)
}

// AddClosedDay registers a day the business does not open.
func (c *Calendar) AddClosedDay(date, reason string) error {
	return addEntry(c.closedDated, c.closedRecur, date, reason)
}

func addEntry(dated, recurring map[string]string, date, name string) error {
	date = strings.TrimSpace(date)
	if _, err := analytics.ParseDate(date); err == nil {
		dated[date] = name
		return nil
	}
	if _, err := time.Parse(monthDayLayout, date); err == nil {
		recurring[date] = name
		return nil
	}
	return fmt.Errorf("invalid calendar date %q: want YYYY-MM-DD or MM-DD", date)
}

// Holiday reports whether date is a holiday and its name.
func (c *Calendar) Holiday(date time.Time) (string, bool) {
	key := analytics.DateKey(date)
	if name, ok := c.dated[key]; ok {
		return name, true
	}
	if name, ok := c.recurring[date.Format(monthDayLayout)]; ok {
		return name, true
	}
	if !c.national {
		return "", false
	}
	name, ok := c.nationalYear(date.Year())[key]
	return name, ok
}

// HolidayEve reports whether the next day is a holiday.
func (c *Calendar) HolidayEve(date time.Time) (string, bool) {
	return c.Holiday(date.AddDate(0, 0, 1))
}

// ClosedDay reports whether the business is closed on date.
func (c *Calendar) ClosedDay(date time.Time) (string, bool) {
	if reason, ok := c.closedDated[analytics.DateKey(date)]; ok {
		return reason, true
	}
	if reason, ok := c.closedRecur[date.Format(monthDayLayout)]; ok {
		return reason, true
	}
	if c.closedWeekdays[date.Weekday()] {
		return "closed on " + strings.ToLower(date.Weekday().String()), true
	}
	return "", false
}

// HolidaysBetween lists the holidays in [from, to] by day key.
func (c *Calendar) HolidaysBetween(from, to time.Time) map[string]string {
	out := map[string]string{}
	for d := analytics.Day(from); !d.After(analytics.Day(to)); d = d.AddDate(0, 0, 1) {
		if name, ok := c.Holiday(d); ok {
			out[analytics.DateKey(d)] = name
		}
	}
	return out
}

func (c *Calendar) nationalYear(year int) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.years[year]; ok {
		return m
	}
	m := NationalHolidays(year)
	c.years[year] = m
	return m
}

func parseWeekday(name string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), strings.TrimSpace(name)) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", name)
}
