package main

import (
	"context"
	"os"

	"github.com/coolcode/alith/cmd/alithd/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd(true)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
