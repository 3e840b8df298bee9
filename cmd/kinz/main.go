// Package main is the kinz command itself.
package main

import (
	"log"
	"os"

	kinzcli "github.com/kinz-go/kinz/cli"
)

func main() {
	app := kinzcli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
