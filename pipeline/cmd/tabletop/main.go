// Package main is the tabletop command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/tabletop/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
