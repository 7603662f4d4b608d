// Package term has small helpers for colored terminal output.
package term

import (
	"fmt"
	"runtime"
)

const escape = "\x1b"

// Foreground colors
const (
	FgBlack = iota + 30
	FgRed
	FgGreen
	FgYellow
	FgBlue
	FgMagenta
	FgCyan
	FgWhite
)

// Modifiers
const (
	Reset = iota
	Bold
	Faint
)

// Status markers printed in front of probe results.
const (
	MarkOK      = "✔"
	MarkFail    = "✘"
	MarkWarn    = "!"
	MarkSection = "==>"
)

// Painter colors strings when it is enabled. The zero value
// leaves everything uncolored.
type Painter struct {
	Enabled bool
}

// NewPainter creates a painter that is disabled on windows
// or when nocolor is set.
func NewPainter(nocolor bool) *Painter {
	return &Painter{Enabled: !nocolor && runtime.GOOS != "windows"}
}

// Green returns s colored green
func (p *Painter) Green(s string) string { return p.color(FgGreen, 0, s) }

// Red returns s colored red
func (p *Painter) Red(s string) string { return p.color(FgRed, 0, s) }

// Yellow returns s colored yellow
func (p *Painter) Yellow(s string) string { return p.color(FgYellow, 0, s) }

// Cyan returns s colored cyan
func (p *Painter) Cyan(s string) string { return p.color(FgCyan, 0, s) }

// Bold returns s in bold.
func (p *Painter) Bold(s string) string { return p.color(FgWhite, Bold, s) }

// Faint returns s in a faint white.
func (p *Painter) Faint(s string) string { return p.color(FgWhite, Faint, s) }

// OK is the marker for a successful probe.
func (p *Painter) OK() string { return p.Green(MarkOK) }

// Fail is the marker for a failed probe.
func (p *Painter) Fail() string { return p.Red(MarkFail) }

// Warn is the marker for probes that are not available.
func (p *Painter) Warn() string { return p.Yellow(MarkWarn) }

func (p *Painter) color(color, modifier int, s string) string {
	if p == nil || !p.Enabled {
		return s
	}
	if modifier != 0 {
		return fmt.Sprintf("%[1]s[%d;%dm%s%[1]s[0m", escape, color, modifier, s)
	}
	return fmt.Sprintf("%[1]s[%dm%s%[1]s[0m", escape, color, s)
}
