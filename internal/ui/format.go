package ui

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// frMagnitudes renders relative times in French ("il y a 5 minutes").
var frMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "à l'instant", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "%s 1 minute", DivBy: 1},
	{D: time.Hour, Format: "%s %d minutes", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "%s 1 heure", DivBy: 1},
	{D: humanize.Day, Format: "%s %d heures", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "%s 1 jour", DivBy: 1},
	{D: humanize.Month, Format: "%s %d jours", DivBy: humanize.Day},
	{D: 2 * humanize.Month, Format: "%s 1 mois", DivBy: 1},
	{D: humanize.Year, Format: "%s %d mois", DivBy: humanize.Month},
	{D: math.MaxInt64, Format: "%s plus d'un an", DivBy: 1},
}

// RelativeTime returns t relative to now, in French.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.CustomRelTime(t, now, "il y a", "dans", frMagnitudes)
}

// FCFA formats an amount with a space as the thousands separator.
func FCFA(amount int) string {
	return humanize.FormatInteger("# ###.", amount) + " FCFA"
}

// Truncate shortens s to at most n runes, adding an ellipsis when cut.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
