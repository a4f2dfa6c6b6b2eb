package ui

import (
	"fmt"
	"os"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Enabled turns styling on. It follows the NO_COLOR convention.
var Enabled = os.Getenv("NO_COLOR") == ""

func style(code, s string) string {
	if !Enabled {
		return s
	}
	return code + s + ColorReset
}

func Bold(s string) string {
	return style(ColorBold, s)
}

func Success(s string) string {
	return style(ColorGreen, s)
}

func Info(s string) string {
	return style(ColorDim+ColorYellow, s)
}

func Error(s string) string {
	return style(ColorRed, s)
}

// Price formats an amount with its currency symbol, highlighted
func Price(currency string, amount float64) string {
	return style(ColorBold+ColorGreen, fmt.Sprintf("%s%.2f", currency, amount))
}
