package tool

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"y", true},
		{"no", false},
		{1, true},
		{0, false},
		{int64(1), true},
		{float64(1), true},
		{float64(0), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := truthy(c.v); got != c.want {
			t.Errorf("truthy(%#v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestConfirmed(t *testing.T) {
	if confirmed(nil) {
		t.Fatal("confirmed(nil) should be false")
	}
	if confirmed(map[string]any{}) {
		t.Fatal("missing _confirm should be false")
	}
	if !confirmed(map[string]any{"_confirm": true}) {
		t.Fatal("_confirm:true should be confirmed")
	}
	if !confirmed(map[string]any{"_confirm": "yes"}) {
		t.Fatal("_confirm:yes should be confirmed")
	}
	if confirmed(map[string]any{"_confirm": "false"}) {
		t.Fatal("_confirm:false should not be confirmed")
	}
}
