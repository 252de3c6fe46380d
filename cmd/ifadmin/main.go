// Package main is the ifadmin staff dashboard CLI.
package main

import (
	"os"

	"github.com/ifilter/ifadmin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
