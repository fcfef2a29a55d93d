// Package gengen is the command-line driver around the generator registry:
// it creates a registered generator per build target, applies key=value
// parameters from the command line, and emits the requested artifacts.
package gengen

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"k8s.io/klog/v2"

	"github.com/fish2000/halogen/emit"
	"github.com/fish2000/halogen/generator"
	"github.com/fish2000/halogen/pipe"
)

// Compile lowers one finished generator instance into the compiled artifact
// files named by outputs. It is injectable so the driver can be linked
// without any code-generation backend; the default of nil makes requesting
// compiled artifacts an error.
var Compile func(g generator.Generator, target pipe.Target, outputs emit.Outputs) error

const usageText = `gengen

Usage:
  gengen -g GENERATOR_NAME -o OUTPUT_DIR target=TARGET[,TARGET...] [generator_arg=value [...]]

Flags:
  -g  name of the generator to run (omit to list the registered generators)
  -f  name of the compiled function, defaults to the generator name
  -n  base name for the emitted files, defaults to the function name
  -o  output directory (required)
  -e  comma-separated artifacts to emit; any of:
      object, assembly, bitcode, header, source, stmt, stmt_html,
      static_library, schedule, stub, metadata
      (defaults to static_library,header,metadata)
  -x  extension substitutions, e.g. ".o=.obj,.a=.lib"
  -p  Go package name for the emitted stub, defaults to the generator name

Generator arguments are given as name=value pairs; "target" is required
unless only stub and/or metadata artifacts are requested. Several targets
may be given comma-separated; every target is built with a shared value
tracker so their buffer constraints are checked for consistency.
`

type invocation struct {
	flags         map[string]string
	generatorArgs map[string]string
}

func parseArgs(args []string) (invocation, error) {
	inv := invocation{
		flags:         make(map[string]string),
		generatorArgs: make(map[string]string),
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if i+1 >= len(args) {
				return inv, fmt.Errorf("the flag %q is missing its value", arg)
			}
			switch arg {
			case "-g", "-f", "-n", "-o", "-e", "-x", "-p":
				if _, dup := inv.flags[arg]; dup {
					return inv, fmt.Errorf("the flag %q was given twice", arg)
				}
				inv.flags[arg] = args[i+1]
				i++
			default:
				return inv, fmt.Errorf("unknown flag %q", arg)
			}
			continue
		}
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return inv, fmt.Errorf("the argument %q is not a flag nor a name=value pair", arg)
		}
		if _, dup := inv.generatorArgs[key]; dup {
			return inv, fmt.Errorf("the generator argument %q was given twice", key)
		}
		inv.generatorArgs[key] = value
	}
	return inv, nil
}

func parseEmitOptions(list, substitutions string) (emit.Options, error) {
	var options emit.Options
	if list == "" {
		options.StaticLibrary = true
		options.Header = true
		options.Metadata = true
	} else {
		for _, name := range strings.Split(list, ",") {
			switch strings.TrimSpace(name) {
			case "object":
				options.Object = true
			case "assembly":
				options.Assembly = true
			case "bitcode":
				options.Bitcode = true
			case "header":
				options.Header = true
			case "source":
				options.Source = true
			case "stmt":
				options.Stmt = true
			case "stmt_html":
				options.StmtHTML = true
			case "static_library":
				options.StaticLibrary = true
			case "schedule":
				options.Schedule = true
			case "stub":
				options.Stub = true
			case "metadata":
				options.Metadata = true
			case "":
			default:
				return options, fmt.Errorf("unknown emit artifact %q", name)
			}
		}
	}
	if substitutions != "" {
		options.Substitutions = make(map[string]string)
		for _, pair := range strings.Split(substitutions, ",") {
			old, sub, found := strings.Cut(pair, "=")
			if !found || !strings.HasPrefix(old, ".") || !strings.HasPrefix(sub, ".") {
				return options, fmt.Errorf("the extension substitution %q is not of the form .old=.new", pair)
			}
			options.Substitutions[old] = sub
		}
	}
	return options, nil
}

func parseTargets(spec string) ([]pipe.Target, error) {
	var targets []pipe.Target
	for _, s := range strings.Split(spec, ",") {
		t, err := pipe.ParseTarget(s)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func listGenerators(w io.Writer, registry *generator.Registry) {
	names := registry.Names()
	sort.Strings(names)
	fmt.Fprintln(w, "registered generators:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

// Main runs the driver over args (without the program name), writing
// diagnostics to stderr, and returns the process exit code. Generators are
// looked up in the process-wide registry.
func Main(args []string, stderr io.Writer) int {
	return MainWithRegistry(args, stderr, generator.DefaultRegistry())
}

// MainWithRegistry is Main with an explicit generator registry.
func MainWithRegistry(args []string, stderr io.Writer, registry *generator.Registry) (code int) {
	defer func() {
		e := recover()
		if e == nil {
			return
		}
		userErr, ok := e.(generator.UserError)
		if !ok {
			panic(e)
		}
		fmt.Fprintf(stderr, "gengen: %s\n", userErr.Error())
		code = 1
	}()

	inv, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "gengen: %s\n%s", err, usageText)
		return 1
	}

	generatorName := inv.flags["-g"]
	if generatorName == "" {
		if names := registry.Names(); len(names) == 1 {
			generatorName = names[0]
		} else {
			fmt.Fprint(stderr, usageText)
			listGenerators(stderr, registry)
			return 1
		}
	}

	options, err := parseEmitOptions(inv.flags["-e"], inv.flags["-x"])
	if err != nil {
		fmt.Fprintf(stderr, "gengen: %s\n", err)
		return 1
	}
	if !options.EmitsAnything() {
		fmt.Fprintf(stderr, "gengen: the -e list selects nothing to emit\n")
		return 1
	}
	outputDir := inv.flags["-o"]
	if outputDir == "" {
		fmt.Fprintf(stderr, "gengen: the -o output directory is required\n%s", usageText)
		return 1
	}

	functionName := inv.flags["-f"]
	if functionName == "" {
		functionName = generatorName
	}
	basePath := emit.BasePath(outputDir, functionName, inv.flags["-n"])

	targetSpec := inv.generatorArgs["target"]
	delete(inv.generatorArgs, "target")
	var targets []pipe.Target
	if targetSpec == "" {
		if options.CompiledOnly() {
			fmt.Fprintf(stderr, "gengen: target=... is required to emit compiled artifacts\n%s", usageText)
			return 1
		}
		// Stub and metadata only describe the interface; any target serves.
		targets = []pipe.Target{pipe.HostTarget()}
	} else {
		targets, err = parseTargets(targetSpec)
		if err != nil {
			fmt.Fprintf(stderr, "gengen: %s\n", err)
			return 1
		}
	}
	if options.CompiledOnly() && Compile == nil {
		fmt.Fprintf(stderr, "gengen: no compiler is linked into this driver; only stub and metadata can be emitted\n")
		return 1
	}

	// One context per target, all sharing the first context's value tracker
	// so that cross-target constraint divergence is caught.
	baseCtx := generator.NewContext(targets[0])
	for i, target := range targets {
		ctx := baseCtx
		if i > 0 {
			ctx = baseCtx.ForTarget(target)
		}
		klog.V(1).Infof("gengen: running generator %q for target %s", generatorName, target)
		g := registry.Create(generatorName, ctx)
		base := generator.BaseOf(g)
		base.SetParamValues(inv.generatorArgs)
		desc := base.Describe()

		outputs := emit.ComputeOutputs(target, basePath, options)
		if i == 0 && options.Stub {
			pkg := inv.flags["-p"]
			if pkg == "" {
				pkg = desc.StubName
			}
			if err := writeFileWith(outputs.StubName, func(w io.Writer) error {
				return emit.WriteStub(w, desc, pkg)
			}); err != nil {
				fmt.Fprintf(stderr, "gengen: %s\n", err)
				return 1
			}
		}
		if i == 0 && options.Metadata {
			if err := writeFileWith(outputs.MetadataName, func(w io.Writer) error {
				return emit.WriteMetadata(w, desc)
			}); err != nil {
				fmt.Fprintf(stderr, "gengen: %s\n", err)
				return 1
			}
		}
		if options.CompiledOnly() {
			if err := Compile(g, target, outputs); err != nil {
				fmt.Fprintf(stderr, "gengen: compiling for target %s: %s\n", target, err)
				return 1
			}
		}
		base.Finalize()
	}
	return 0
}

func writeFileWith(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
