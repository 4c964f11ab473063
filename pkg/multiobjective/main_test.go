//go:build e2e
// +build e2e

package multiobjective

import (
	"os"
	"testing"

	"sigs.k8s.io/e2e-framework/klient/conf"
	"sigs.k8s.io/e2e-framework/pkg/env"
	"sigs.k8s.io/e2e-framework/pkg/envconf"
	"sigs.k8s.io/e2e-framework/pkg/envfuncs"
)

var (
	testenv env.Environment

	// workloadNamespace holds the pods placed during a run.
	workloadNamespace string
)

func TestMain(m *testing.M) {
	testenv = env.NewWithConfig(envconf.NewWithKubeConfig(conf.ResolveKubeConfigFile()))

	workloadNamespace = envconf.RandomName("placement-e2e", 20)
	testenv.Setup(envfuncs.CreateNamespace(workloadNamespace))
	testenv.Finish(envfuncs.DeleteNamespace(workloadNamespace))

	os.Exit(testenv.Run(m))
}
