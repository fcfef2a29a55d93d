// Package emit renders generator descriptions into build artifacts: the
// per-target output file names, a YAML metadata description, and a Go
// source stub wrapping the generator invocation.
package emit

import (
	"path/filepath"
	"strings"

	"github.com/fish2000/halogen/pipe"
)

// Options selects which artifacts a driver run emits, and optionally
// substitutes file extensions.
type Options struct {
	Object        bool
	Assembly      bool
	Bitcode       bool
	Header        bool
	Source        bool
	Stmt          bool
	StmtHTML      bool
	StaticLibrary bool
	Schedule      bool
	Stub          bool
	Metadata      bool

	// Substitutions maps a default extension (with its leading dot, e.g.
	// ".o") to a replacement.
	Substitutions map[string]string
}

// EmitsAnything reports whether at least one artifact is selected.
func (o Options) EmitsAnything() bool {
	return o.Object || o.Assembly || o.Bitcode || o.Header || o.Source ||
		o.Stmt || o.StmtHTML || o.StaticLibrary || o.Schedule || o.Stub || o.Metadata
}

// CompiledOnly reports whether any selected artifact requires lowering the
// pipeline (everything except the stub and the metadata description).
func (o Options) CompiledOnly() bool {
	return o.Object || o.Assembly || o.Bitcode || o.Header || o.Source ||
		o.Stmt || o.StmtHTML || o.StaticLibrary || o.Schedule
}

func (o Options) extension(def string) string {
	if sub, found := o.Substitutions[def]; found {
		return sub
	}
	return def
}

// Outputs holds the resolved file name for each selected artifact; empty
// means not selected.
type Outputs struct {
	ObjectName        string
	AssemblyName      string
	BitcodeName       string
	HeaderName        string
	SourceName        string
	StmtName          string
	StmtHTMLName      string
	StaticLibraryName string
	ScheduleName      string
	StubName          string
	MetadataName      string
}

// ComputeOutputs resolves the artifact file names for basePath under the
// given target. Object and library artifacts use the COFF extensions on
// Windows targets.
func ComputeOutputs(target pipe.Target, basePath string, options Options) Outputs {
	isCOFF := target.OS == "windows" && !target.HasFeature("mingw")
	objExt, libExt := ".o", ".a"
	if isCOFF {
		objExt, libExt = ".obj", ".lib"
	}
	var out Outputs
	if options.Object {
		out.ObjectName = basePath + options.extension(objExt)
	}
	if options.Assembly {
		out.AssemblyName = basePath + options.extension(".s")
	}
	if options.Bitcode {
		out.BitcodeName = basePath + options.extension(".bc")
	}
	if options.Header {
		out.HeaderName = basePath + options.extension(".h")
	}
	if options.Source {
		out.SourceName = basePath + options.extension(".c")
	}
	if options.Stmt {
		out.StmtName = basePath + options.extension(".stmt")
	}
	if options.StmtHTML {
		out.StmtHTMLName = basePath + options.extension(".html")
	}
	if options.StaticLibrary {
		out.StaticLibraryName = basePath + options.extension(libExt)
	}
	if options.Schedule {
		out.ScheduleName = basePath + options.extension(".schedule")
	}
	if options.Stub {
		out.StubName = basePath + options.extension(".stub.go")
	}
	if options.Metadata {
		out.MetadataName = basePath + options.extension(".yaml")
	}
	return out
}

// SimpleName strips any dot-qualified namespace prefix from a function
// name: "pkg.sub.fn" becomes "fn".
func SimpleName(functionName string) string {
	if i := strings.LastIndexByte(functionName, '.'); i >= 0 {
		return functionName[i+1:]
	}
	return functionName
}

// BasePath joins the output directory with the artifact base name: the
// explicit fileBaseName when given, otherwise the simple (unqualified)
// function name.
func BasePath(outputDir, functionName, fileBaseName string) string {
	base := fileBaseName
	if base == "" {
		base = SimpleName(functionName)
	}
	return filepath.Join(outputDir, base)
}
