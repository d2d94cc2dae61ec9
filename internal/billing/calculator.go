package billing

import "time"

// BilledHours returns the number of whole hours charged for the interval.
// Any positive duration is billed for at least one full hour; partial hours
// round up. Non-positive durations bill zero hours.
func BilledHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// Amount computes the charge in centavos for the interval at the given
// hourly rate. Rates are integer centavos, so the result is exact and
// identical for every caller with the same inputs.
func Amount(start, end time.Time, pricePerHour int64) int64 {
	return BilledHours(start, end) * pricePerHour
}

// RoundHalfUp converts a decimal currency value to centavos, rounding
// half-up. Used only at the edges when decimal display prices enter the
// system; all internal arithmetic stays in integer centavos.
func RoundHalfUp(value float64) int64 {
	if value >= 0 {
		return int64(value*100 + 0.5)
	}
	return -int64(-value*100 + 0.5)
}
