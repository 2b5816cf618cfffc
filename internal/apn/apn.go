// Package apn canonicalizes Butte County assessor parcel numbers.
package apn

import "strings"

// parcelDigits is the digit count of a county parcel number.
const parcelDigits = 9

// Normalize returns the canonical key for a raw identifier. A value carrying
// exactly nine digits is regrouped as DDD-DDD-DDD; anything else (street
// addresses, short or long numbers) is returned unchanged.
func Normalize(raw string) string {
	d := Digits(raw)
	if len(d) != parcelDigits {
		return raw
	}
	return d[0:3] + "-" + d[3:6] + "-" + d[6:9]
}

// IsParcelNumber reports whether raw normalizes to a dashed parcel number.
func IsParcelNumber(raw string) bool {
	return len(Digits(raw)) == parcelDigits
}

// Digits strips everything but ASCII digits from raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
