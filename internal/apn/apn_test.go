package apn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare digits", "012345678", "012-345-678"},
		{"already dashed", "012-345-678", "012-345-678"},
		{"spaces", "012 345 678", "012-345-678"},
		{"mixed separators", "012.345/678", "012-345-678"},
		{"too short", "12345678", "12345678"},
		{"too long", "0123456789", "0123456789"},
		{"street address", "1234 Esplanade, Chico", "1234 Esplanade, Chico"},
		{"empty", "", ""},
		{"address with nine digits", "12 Main St 9592699", "129-592-699"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"012345678", "012-345-678", "  007 101 022 ", "12345",
		"1234 Esplanade", "", "abc", "0-1-2-3-4-5-6-7-8", "9999999999",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_DashPositions(t *testing.T) {
	got := Normalize("987654321")
	assert.Len(t, got, 11)
	assert.Equal(t, byte('-'), got[3])
	assert.Equal(t, byte('-'), got[7])
	assert.Equal(t, "987654321", Digits(got))
}

func TestIsParcelNumber(t *testing.T) {
	assert.True(t, IsParcelNumber("007-101-022"))
	assert.False(t, IsParcelNumber("1234 Esplanade"))
	assert.False(t, IsParcelNumber(""))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "007101022", Digits("007-101-022"))
	assert.Equal(t, "", Digits("no digits"))
}
