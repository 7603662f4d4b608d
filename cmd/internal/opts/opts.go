package opts

import "github.com/spf13/pflag"

// Options can add themselves to a flag set.
type Options interface {
	AddToFlagSet(*pflag.FlagSet)
}

// Global holds the flags shared by every command.
type Global struct {
	NoColor bool
	Verbose bool
}

// AddToFlagSet adds the global flags to a flag set.
func (g *Global) AddToFlagSet(set *pflag.FlagSet) {
	set.BoolVar(&g.NoColor, "nocolor", false, "turn off colors")
	set.BoolVarP(&g.Verbose, "verbose", "v", false, "also write log messages to stderr")
}
