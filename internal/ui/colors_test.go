package ui

import "testing"

func TestStyling(t *testing.T) {
	defer func(prev bool) { Enabled = prev }(Enabled)

	Enabled = true
	if got := Error("boom"); got != ColorRed+"boom"+ColorReset {
		t.Errorf("Error() = %q", got)
	}
	if got := Price("₹", 54999); got != ColorBold+ColorGreen+"₹54999.00"+ColorReset {
		t.Errorf("Price() = %q", got)
	}

	Enabled = false
	if got := Bold("plain"); got != "plain" {
		t.Errorf("Bold() with styling off = %q", got)
	}
	if got := Price("₹", 1234.5); got != "₹1234.50" {
		t.Errorf("Price() with styling off = %q", got)
	}
}
