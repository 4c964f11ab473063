package main

import (
	"os"

	"k8s.io/component-base/cli"
	_ "k8s.io/component-base/metrics/prometheus/clientgo" // for rest client metric registration
	_ "k8s.io/component-base/metrics/prometheus/version"  // for version metric registration
	"k8s.io/kubernetes/cmd/kube-scheduler/app"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective"
)

func main() {
	// Register the MultiObjective plugin next to the default plugins.
	command := app.NewSchedulerCommand(
		app.WithPlugin(multiobjective.Name, multiobjective.New),
	)

	code := cli.Run(command)
	os.Exit(code)
}
