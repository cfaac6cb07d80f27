package wire

import "testing"

func TestAppendU128(t *testing.T) {
	cases := []struct {
		hi, lo uint64
		want   string
	}{
		{0, 0, "0"},
		{0, 1, "1"},
		{0, 18446744073709551615, "18446744073709551615"},
		{1, 0, "18446744073709551616"},
		{1, 1, "18446744073709551617"},
		{0xffffffffffffffff, 0xffffffffffffffff, "340282366920938463463374607431768211455"},
		{0x0123456789abcdef, 0xfedcba9876543210, "1512366075204170929049582354406559216"},
	}
	for _, tc := range cases {
		got := string(AppendU128(nil, tc.hi, tc.lo))
		if got != tc.want {
			t.Errorf("AppendU128(%#x, %#x) = %s, want %s", tc.hi, tc.lo, got, tc.want)
		}
	}
}

func TestAppendU128_RoundTrip(t *testing.T) {
	cases := []struct{ hi, lo uint64 }{
		{0, 42},
		{7, 0},
		{0xdeadbeef, 0xcafebabe},
		{^uint64(0), ^uint64(0)},
	}
	for _, tc := range cases {
		s := string(AppendU128(nil, tc.hi, tc.lo))
		hi, lo, err := SplitU128(s)
		if err != nil {
			t.Fatalf("SplitU128(%s) error = %v", s, err)
		}
		if hi != tc.hi || lo != tc.lo {
			t.Errorf("round trip %s: got (%#x, %#x), want (%#x, %#x)", s, hi, lo, tc.hi, tc.lo)
		}
	}
}

func TestParseU128(t *testing.T) {
	if got, err := ParseU128("340282366920938463463374607431768211455"); err != nil || got != "340282366920938463463374607431768211455" {
		t.Fatalf("expected max u128 to parse, got %q err=%v", got, err)
	}
	if got, err := ParseU128("007"); err != nil || got != "7" {
		t.Fatalf("expected canonical form 7, got %q err=%v", got, err)
	}

	for _, bad := range []string{
		"",
		"-1",
		"abc",
		"1.5",
		"340282366920938463463374607431768211456", // 2^128
	} {
		if _, err := ParseU128(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
