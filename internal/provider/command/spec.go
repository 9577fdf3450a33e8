// Package command runs capability providers as external programs.
//
// Every provider is a command line. Input goes to the program's stdin and
// the result is read from its stdout; a non-zero exit status is a provider
// failure. This keeps each vendor's wire protocol out of the assistant: a
// small script per vendor is enough to join a chain.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lexiqai/voice-assistant/internal/resilience"
)

// ErrInvalidSpec is returned for a malformed provider spec
var ErrInvalidSpec = errors.New("invalid provider spec")

// Spec describes one provider command, written as "name=program arg...".
// Arguments are split on whitespace; there is no shell quoting.
type Spec struct {
	Name    string
	Program string
	Args    []string
	Rank    int
}

// String renders the spec back into its textual form
func (s Spec) String() string {
	return s.Name + "=" + strings.Join(append([]string{s.Program}, s.Args...), " ")
}

// ParseSpec parses a single "name=program arg..." spec
func ParseSpec(raw string) (Spec, error) {
	name, cmdline, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Spec{}, fmt.Errorf("%w: %q: expected name=program", ErrInvalidSpec, raw)
	}
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return Spec{}, fmt.Errorf("%w: %q: program is empty", ErrInvalidSpec, raw)
	}
	return Spec{Name: name, Program: fields[0], Args: fields[1:]}, nil
}

// ParseSpecs parses a ranked list of specs. The rank of each spec is its
// position in the list. Blank items are skipped.
func ParseSpecs(raw []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		spec, err := ParseSpec(item)
		if err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: duplicate provider name %q", ErrInvalidSpec, spec.Name)
		}
		seen[spec.Name] = true
		spec.Rank = len(specs)
		specs = append(specs, spec)
	}
	return specs, nil
}

// Entries turns specs into chain entries, building each provider with build
func Entries[T any](specs []Spec, build func(Spec) T) []resilience.Entry[T] {
	entries := make([]resilience.Entry[T], len(specs))
	for i, s := range specs {
		entries[i] = resilience.Entry[T]{Name: s.Name, Rank: s.Rank, Provider: build(s)}
	}
	return entries
}
