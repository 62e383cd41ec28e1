package main

import (
	"fmt"
	"os"

	"github.com/krrrr38/gitlab-2-github-metadata/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
