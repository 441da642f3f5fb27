package datastore

import "testing"

func Test_ParseUnixTimestamp(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"2024-01-01", 1704067200, false},
		{"2024-06-01", 1717200000, false},
		{"2024-01-01T00:00:00Z", 1704067200, false},
		{"2024-01-01T01:30:00+01:30", 1704067200, false},
		{"not-a-date", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseUnixTimestamp(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseUnixTimestamp(%q): want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUnixTimestamp(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseUnixTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func Test_FormatUnixTimestamp_RoundTrip(t *testing.T) {
	t.Parallel()
	const epoch = int64(1704067200)
	formatted := FormatUnixTimestamp(epoch)
	back, err := ParseUnixTimestamp(formatted)
	if err != nil {
		t.Fatalf("parse formatted: %v", err)
	}
	if back != epoch {
		t.Errorf("round trip: got %d, want %d", back, epoch)
	}
}
