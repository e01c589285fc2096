// Package main is the entry point for tandem.
package main

import (
	"github.com/samber/lo"
	"github.com/tandem-cli/tandem/cmd"
	"github.com/tandem-cli/tandem/config"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/player"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go player.CollectSockets()

	cmd.Execute()
}
