package main

import (
	"os"

	"orgconsole/cmd/bulkctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
