package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyNormalize(t *testing.T) {
	cases := []struct {
		cents int64
		rate  string
		want  int64
	}{
		{50000, "1.1", 55000},
		{200000, "1", 200000},
		{333, "1.5", 500}, // 499.5 rounds half up
		{100, "0.333333", 33},
	}
	for _, tc := range cases {
		got := Money{Cents: tc.cents}.Normalize(MustRate(tc.rate))
		if got.Cents != tc.want {
			t.Errorf("%d x %s = %d, want %d", tc.cents, tc.rate, got.Cents, tc.want)
		}
	}

	if got := (Money{Cents: 700}).Normalize(Rate{}); got.Cents != 700 {
		t.Errorf("zero rate should behave as 1, got %d", got.Cents)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 2550}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":25.50}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	for _, in := range []string{`25.5`, `"25.50"`, `25.499`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if m.Cents != 2550 {
			t.Fatalf("%s decoded to %d", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`-3`), &m); err == nil {
		t.Fatal("expected negative amount to be rejected")
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio(Money{Cents: 255000}, Money{Cents: 1000000}); got != 0.255 {
		t.Fatalf("got %v", got)
	}
	if got := Ratio(Money{Cents: 100}, Money{}); got != 0 {
		t.Fatalf("zero budget should give 0, got %v", got)
	}
}

func TestParseRate(t *testing.T) {
	for _, in := range []string{"0", "-1", "x", ""} {
		if _, err := ParseRate(in); err == nil {
			t.Errorf("%q expected error", in)
		}
	}
	r, err := ParseRate("1.25")
	if err != nil || r.String() != "1.25" {
		t.Fatalf("got %v, %v", r, err)
	}
}
