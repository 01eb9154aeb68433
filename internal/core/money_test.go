package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1000", "1000", false},
		{"1000.00", "1000", false},
		{"$1,234.50", "1234.5", false},
		{"1.234,50 €", "1234.5", false},
		{"12,5", "12.5", false},
		{"12,34", "12.34", false},
		{"1,234", "1234", false},
		{"1.234.567", "1234567", false},
		{" 75 ", "75", false},
		{"0", "0", false},
		{"", "", true},
		{"abc", "", true},
		{"-5", "", true},
		{"..", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got.String(), tt.want)
			}
		})
	}
}

func TestParsePositiveAmount(t *testing.T) {
	if _, err := ParsePositiveAmount("0"); err == nil {
		t.Fatalf("zero should be rejected")
	}
	d, err := ParsePositiveAmount("25.10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatAmount(d) != "25.10" {
		t.Fatalf("FormatAmount = %s", FormatAmount(d))
	}
}
