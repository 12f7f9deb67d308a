package types

// Interval identifies the bar aggregation size. Intraday intervals are the
// bucket width in minutes.
type Interval string

const (
	OneMinute      Interval = "1"
	FiveMinutes    Interval = "5"
	FifteenMinutes Interval = "15"
	ThirtyMinutes  Interval = "30"
	Hour           Interval = "60"
	Day            Interval = "D"
	Week           Interval = "W"
)
