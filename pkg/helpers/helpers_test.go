package helpers

import "testing"

func TestBytesEqual(t *testing.T) {
	tests := []struct {
		name string
		a    []byte
		b    []byte
		want bool
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, true},
		{"not equal", []byte{1, 2, 3}, []byte{1, 2, 4}, false},
		{"different length", []byte{1, 2}, []byte{1, 2, 3}, false},
		{"empty equal", []byte{}, []byte{}, true},
		{"nil equal", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BytesEqual(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("BytesEqual = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsZeroBytes(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		want bool
	}{
		{"all zero", []byte{0, 0, 0}, true},
		{"has nonzero", []byte{0, 1, 0}, false},
		{"empty", []byte{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsZeroBytes(tt.b); got != tt.want {
				t.Errorf("IsZeroBytes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatSatoshis(t *testing.T) {
	tests := []struct {
		sats int64
		want string
	}{
		{100000000, "1"},
		{150000000, "1.5"},
		{1, "0.00000001"},
		{0, "0"},
		{-50000000, "-0.5"},
	}

	for _, tt := range tests {
		if got := FormatSatoshis(tt.sats); got != tt.want {
			t.Errorf("FormatSatoshis(%d) = %q, want %q", tt.sats, got, tt.want)
		}
	}
}

func TestParseBSV(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1", 100000000},
		{"1.5", 150000000},
		{"0.00000001", 1},
		{"0", 0},
	}

	for _, tt := range tests {
		got, err := ParseBSV(tt.in)
		if err != nil {
			t.Fatalf("ParseBSV(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseBSV(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseBSVRoundTrip(t *testing.T) {
	for _, amt := range []int64{0, 1, 546, 100000000, 2100000000000000} {
		s := FormatSatoshis(amt)
		back, err := ParseBSV(s)
		if err != nil {
			t.Fatalf("ParseBSV(%q) error: %v", s, err)
		}
		if back != amt {
			t.Errorf("round trip %d -> %q -> %d", amt, s, back)
		}
	}
}
