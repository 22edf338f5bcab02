package calendar

import (
	"time"

	"github.com/lavapop/cashcast/internal/analytics"
)

var fixedHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "Confraternização Universal"},
	{time.April, 21, "Tiradentes"},
	{time.May, 1, "Dia do Trabalho"},
	{time.September, 7, "Independência do Brasil"},
	{time.October, 12, "Nossa Senhora Aparecida"},
	{time.November, 2, "Finados"},
	{time.November, 15, "Proclamação da República"},
	{time.November, 20, "Dia da Consciência Negra"},
	{time.December, 25, "Natal"},
}

// Easter-relative holidays, in days from Easter Sunday.
var movableHolidays = []struct {
	offset int
	name   string
}{
	{-48, "Carnaval (segunda-feira)"},
	{-47, "Carnaval (terça-feira)"},
	{-2, "Sexta-feira Santa"},
	{60, "Corpus Christi"},
}

// NationalHolidays returns the national holidays of a year by day key.
func NationalHolidays(year int) map[string]string {
	m := make(map[string]string, len(fixedHolidays)+len(movableHolidays))
	for _, h := range fixedHolidays {
		m[analytics.DateKey(time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC))] = h.name
	}
	easter := Easter(year)
	for _, h := range movableHolidays {
		m[analytics.DateKey(easter.AddDate(0, 0, h.offset))] = h.name
	}
	return m
}

// Easter returns Easter Sunday of the Gregorian year (anonymous algorithm).
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
