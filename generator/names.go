package generator

import (
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
)

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// Note that this includes '_'.
func isAlnum(c byte) bool {
	return isAlpha(c) || c == '_' || (c >= '0' && c <= '9')
}

// IsValidName reports whether name is valid for generators, parameters,
// inputs and outputs: a non-empty identifier with an alphabetic first
// character, where a leading underscore or two underscores in a row are
// forbidden.
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	if !isAlpha(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isAlnum(name[i]) {
			return false
		}
		if name[i] == '_' && name[i-1] == '_' {
			return false
		}
	}
	return true
}

// CheckValidName panics with a UserError if name is not a valid identifier;
// what names the offender in the message ("generator", "Input", ...).
func CheckValidName(name, what string) {
	if !IsValidName(name) {
		userErrorf("invalid %s name: %q", what, name)
	}
}

// ParseTypeList parses a comma-separated list of element type names, e.g.
// "uint8,int32".
func ParseTypeList(list string) []dtypes.DType {
	var result []dtypes.DType
	for _, name := range strings.Split(list, ",") {
		dtype, err := dtypes.DTypeString(strings.TrimSpace(name))
		if err != nil {
			userErrorf("type not found: %q", name)
		}
		result = append(result, dtype)
	}
	return result
}
