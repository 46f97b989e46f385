package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSGAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"full address with postal code", "Blk 123 Bedok North Ave 4, Singapore 460123", true},
		{"postal code only", "560430", true},
		{"postal code mid-string", "12 Marina Blvd 018982 #05-01", true},
		{"no postal code", "12 Marina Boulevard", false},
		{"five digits only", "12345", false},
		{"seven digits run together", "1234567", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, SGAddress(tt.address))
		})
	}
}

func TestSGPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"mobile starting 9", "91234567", true},
		{"mobile starting 8", "81234567", true},
		{"landline starting 6", "62345678", true},
		{"starts with 7", "71234567", false},
		{"too short", "9123456", false},
		{"too long", "912345678", false},
		{"country code prefix", "+6591234567", false},
		{"letters", "9123456a", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, SGPhone(tt.phone))
		})
	}
}

func TestNRIC(t *testing.T) {
	tests := []struct {
		name  string
		nric  string
		valid bool
	}{
		{"citizen S series", "S1234567D", true},
		{"citizen T series", "T0012345A", true},
		{"foreigner F series", "F7654321X", true},
		{"foreigner G series", "G1111111K", true},
		{"foreigner M series", "M5678901L", true},
		{"lowercase prefix accepted", "s1234567d", true},
		{"wrong prefix", "A1234567D", false},
		{"six digits", "S123456D", false},
		{"eight digits", "S12345678D", false},
		{"missing checksum letter", "S1234567", false},
		{"digit checksum", "S12345679", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, NRIC(tt.nric))
		})
	}
}
