package emit

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fish2000/halogen/generator"
)

// Metadata is the on-disk YAML description of one generator.
type Metadata struct {
	Generator string                       `yaml:"generator"`
	StubName  string                       `yaml:"stub_name,omitempty"`
	Params    []generator.ParamDescription `yaml:"params,omitempty"`
	Inputs    []generator.FieldDescription `yaml:"inputs,omitempty"`
	Outputs   []generator.FieldDescription `yaml:"outputs"`
}

// WriteMetadata writes the YAML description of desc to w.
func WriteMetadata(w io.Writer, desc generator.Description) error {
	md := Metadata{
		Generator: desc.RegisteredName,
		StubName:  desc.StubName,
		Params:    desc.Params,
		Inputs:    desc.Inputs,
		Outputs:   desc.Outputs,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&md); err != nil {
		return errors.Wrapf(err, "encoding metadata for generator %q", desc.RegisteredName)
	}
	return errors.Wrapf(enc.Close(), "encoding metadata for generator %q", desc.RegisteredName)
}
