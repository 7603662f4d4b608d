package main

import (
	"github.com/harrybrwn/untis-probe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.Stop(err)
	}
}
