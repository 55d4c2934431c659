package inventory

import "testing"

func TestAsID(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{float64(3), 3, true},
		{"42", 42, true},
		{int64(7), 7, true},
		{float64(1.5), 0, false},
		{float64(0), 0, false},
		{float64(1 << 62), 1 << 62, true},
		{float64(1 << 63), 0, false},
		{1e19, 0, false},
		{"-1", -1, false},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := asID(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("asID(%#v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		in   any
		want bool
		ok   bool
	}{
		{true, true, true},
		{false, false, true},
		{float64(1), true, true},
		{float64(0), false, true},
		{"1", true, true},
		{"false", false, true},
		{float64(2), false, false},
		{"yes", false, false},
		{nil, false, false},
	}

	for _, tt := range tests {
		got, ok := asBool(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("asBool(%#v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
