package models

// Frequency is the configured cadence of scheduled generation.
type Frequency string

const (
	FrequencyHourly     Frequency = "hourly"
	FrequencyDaily      Frequency = "daily"
	FrequencyTwiceDaily Frequency = "twicedaily"
	FrequencyWeekly     Frequency = "weekly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyTwiceDaily, FrequencyWeekly:
		return true
	}
	return false
}
