// Command gengen runs a registered generator and emits its artifacts.
// Generators link themselves in by importing their packages here (or in a
// program embedding gengen.Main) and registering from an init function.
package main

import (
	"flag"
	"os"

	"k8s.io/klog/v2"

	"github.com/fish2000/halogen/gengen"
)

func main() {
	// gengen parses its own arguments (they mix flags with name=value
	// pairs), so klog flags are registered on a side flag set and keep
	// their defaults.
	klog.InitFlags(flag.NewFlagSet("klog", flag.ContinueOnError))
	os.Exit(gengen.Main(os.Args[1:], os.Stderr))
}
