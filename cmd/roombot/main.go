// Command roombot runs the poll and flag game chat bot.
package main

import (
	"log"

	"github.com/m3rciful/roombot/core/cmd"
)

func main() {
	if err := cmd.Run(cmd.Options{DefaultConfigPath: "config.yaml"}); err != nil {
		log.Fatal(err)
	}
}
