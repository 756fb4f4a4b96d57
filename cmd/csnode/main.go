package main

import (
	"fmt"
	"os"

	"github.com/csnode/corenode/cmd/csnode/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
