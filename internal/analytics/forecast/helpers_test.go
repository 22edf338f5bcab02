package forecast

import (
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
)

// Common test data and helpers for all forecast tests

// testStart is a Monday, so day i has mondayIndex i%7.
var testStart = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

type stubCalendar struct {
	holidays map[string]string
	closed   map[string]string
}

func (c stubCalendar) Holiday(d time.Time) (string, bool) {
	name, ok := c.holidays[analytics.DateKey(d)]
	return name, ok
}

func (c stubCalendar) HolidayEve(d time.Time) (string, bool) {
	return c.Holiday(d.AddDate(0, 0, 1))
}

func (c stubCalendar) ClosedDay(d time.Time) (string, bool) {
	reason, ok := c.closed[analytics.DateKey(d)]
	return reason, ok
}

// lcg is a tiny deterministic generator so fixtures are stable across runs.
type lcg struct{ state uint64 }

func (g *lcg) float() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / (1 << 53)
}

// norm approximates a standard normal draw (Irwin-Hall with 12 terms).
func (g *lcg) norm() float64 {
	s := 0.0
	for i := 0; i < 12; i++ {
		s += g.float()
	}
	return s - 6
}

// synthHistory generates days of revenue around 500 with a weekend bump and
// noise, plus varying weather with occasional rain.
func synthHistory(days int, weekendBump, noiseSD float64, seed uint64) (analytics.RevenueSeries, analytics.WeatherSeries) {
	g := &lcg{state: seed}
	revenue := make(analytics.RevenueSeries, 0, days)
	weather := make(analytics.WeatherSeries, 0, days)
	for i := 0; i < days; i++ {
		d := testStart.AddDate(0, 0, i)
		w := analytics.WeatherDay{Date: d}
		w.Humidity = 45 + 45*g.float()
		w.CloudCover = 100 * g.float()
		if g.float() > 0.75 {
			w.Precipitation = 25 * g.float()
		}
		rev := 500 + noiseSD*g.norm()
		if mondayIndex(d) >= 5 {
			rev += weekendBump
		}
		revenue = append(revenue, analytics.RevenueDay{Date: d, TotalRevenue: rev})
		weather = append(weather, w)
	}
	return revenue, weather
}

// forecastWeather extends the weather series over the forecast horizon.
func forecastWeather(start time.Time, days int) analytics.WeatherSeries {
	out := make(analytics.WeatherSeries, days)
	for i := range out {
		out[i] = analytics.WeatherDay{
			Date:       start.AddDate(0, 0, i),
			Humidity:   70,
			CloudCover: 40,
		}
	}
	return out
}

func almostEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
