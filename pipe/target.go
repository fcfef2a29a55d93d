package pipe

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Target describes the machine a pipeline is built for. The zero value is
// the "no target" sentinel: Defined() reports false and it compares equal
// only to itself.
type Target struct {
	Arch     string
	Bits     int
	OS       string
	Features []string
}

// HostTarget returns the target describing the machine the process runs on.
func HostTarget() Target {
	bits := 64
	if strings.HasSuffix(runtime.GOARCH, "386") || runtime.GOARCH == "arm" {
		bits = 32
	}
	return Target{Arch: runtime.GOARCH, Bits: bits, OS: runtime.GOOS}
}

// ParseTarget parses a target triple of the form "arch-bits-os[-feature...]",
// e.g. "x86-64-linux-avx2", or the literal "host".
func ParseTarget(s string) (Target, error) {
	if s == "host" {
		return HostTarget(), nil
	}
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return Target{}, errors.Errorf("invalid target %q: want arch-bits-os[-feature...]", s)
	}
	bits, err := strconv.Atoi(parts[1])
	if err != nil || (bits != 32 && bits != 64) {
		return Target{}, errors.Errorf("invalid target %q: bits must be 32 or 64", s)
	}
	t := Target{Arch: parts[0], Bits: bits, OS: parts[2]}
	if len(parts) > 3 {
		t.Features = parts[3:]
	}
	return t, nil
}

// Defined reports whether the target has been set to anything other than the
// "no target" sentinel.
func (t Target) Defined() bool {
	return t.Arch != "" || t.OS != "" || t.Bits != 0
}

// Equal reports whether two targets are the same, features included.
func (t Target) Equal(other Target) bool {
	return t.Arch == other.Arch && t.Bits == other.Bits && t.OS == other.OS &&
		slices.Equal(t.Features, other.Features)
}

// HasFeature reports whether the target carries the named feature.
func (t Target) HasFeature(feature string) bool {
	return slices.Contains(t.Features, feature)
}

// WithFeatures returns a copy of the target with the given features appended.
func (t Target) WithFeatures(features ...string) Target {
	t.Features = append(slices.Clone(t.Features), features...)
	return t
}

func (t Target) String() string {
	if !t.Defined() {
		return "(no target)"
	}
	parts := append([]string{t.Arch, strconv.Itoa(t.Bits), t.OS}, t.Features...)
	return strings.Join(parts, "-")
}

// MachineParams carries the machine characteristics the auto-scheduler works
// with.
type MachineParams struct {
	Parallelism        int
	LastLevelCacheSize int64
	BalanceRatio       float64
}

// DefaultMachineParams returns generic machine characteristics.
func DefaultMachineParams() MachineParams {
	return MachineParams{Parallelism: 16, LastLevelCacheSize: 16 << 20, BalanceRatio: 40}
}

// ParseMachineParams parses "parallelism,llc_bytes,balance", e.g.
// "16,16777216,40".
func ParseMachineParams(s string) (MachineParams, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return MachineParams{}, errors.Errorf("invalid machine params %q: want parallelism,llc,balance", s)
	}
	parallelism, err := strconv.Atoi(parts[0])
	if err != nil {
		return MachineParams{}, errors.Wrapf(err, "invalid machine params %q", s)
	}
	llc, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return MachineParams{}, errors.Wrapf(err, "invalid machine params %q", s)
	}
	balance, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return MachineParams{}, errors.Wrapf(err, "invalid machine params %q", s)
	}
	return MachineParams{Parallelism: parallelism, LastLevelCacheSize: llc, BalanceRatio: balance}, nil
}

func (mp MachineParams) String() string {
	return fmt.Sprintf("%d,%d,%g", mp.Parallelism, mp.LastLevelCacheSize, mp.BalanceRatio)
}
