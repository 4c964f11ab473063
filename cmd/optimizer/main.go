package main

import (
	"os"

	"k8s.io/component-base/cli"

	"github.com/mihai-snyk/placement-optimizer/cmd/optimizer/app"
)

func main() {
	command := app.NewOptimizerCommand()
	code := cli.Run(command)
	os.Exit(code)
}
