package format

import "testing"

func TestWholeUnits(t *testing.T) {
	tests := []struct {
		amount   float64
		expected int64
	}{
		{33472.318572438155, 33472},
		{0.5, 1},
		{1.49, 1},
		{-0.5, -1},
		{-1234.6, -1235},
		{0, 0},
	}

	for _, tt := range tests {
		if got := WholeUnits(tt.amount); got != tt.expected {
			t.Errorf("WholeUnits(%v) = %d, expected %d", tt.amount, got, tt.expected)
		}
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Small amount", 833.33, "833 元"},
		{"Thousands", 33472.318572438155, "33,472 元"},
		{"Total", 100416.956, "100,417 元"},
		{"Millions", 1234567.5, "1,234,568 元"},
		{"Zero", 0, "0 元"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestNumericCurrency(t *testing.T) {
	if got := NumericCurrency(-1234.6); got != "-1,235" {
		t.Errorf("NumericCurrency(-1234.6) = %q, expected %q", got, "-1,235")
	}
	if got := NumericCurrency(999.4); got != "999" {
		t.Errorf("NumericCurrency(999.4) = %q, expected %q", got, "999")
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		percent  float64
		expected string
	}{
		{2.5, "2.50 %"},
		{2.5 * 1.15 * 1.25, "3.59 %"},
		{3, "3.00 %"},
		{0.005, "0.01 %"},
	}

	for _, tt := range tests {
		if got := Rate(tt.percent); got != tt.expected {
			t.Errorf("Rate(%v) = %q, expected %q", tt.percent, got, tt.expected)
		}
	}
}
