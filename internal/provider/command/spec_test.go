package command

import (
	"errors"
	"testing"
)

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec("groq = python3 scripts/groq.py --model llama3")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if spec.Name != "groq" {
		t.Errorf("Expected name groq, got %q", spec.Name)
	}
	if spec.Program != "python3" {
		t.Errorf("Expected program python3, got %q", spec.Program)
	}
	if len(spec.Args) != 3 || spec.Args[2] != "llama3" {
		t.Errorf("Expected 3 args ending in llama3, got %v", spec.Args)
	}
	if spec.String() != "groq=python3 scripts/groq.py --model llama3" {
		t.Errorf("Unexpected string form %q", spec.String())
	}
}

func TestParseSpec_Invalid(t *testing.T) {
	for _, raw := range []string{"", "noequals", "=prog", "name=", "name=   "} {
		if _, err := ParseSpec(raw); !errors.Is(err, ErrInvalidSpec) {
			t.Errorf("Expected ErrInvalidSpec for %q, got %v", raw, err)
		}
	}
}

func TestParseSpecs_RankIsPosition(t *testing.T) {
	specs, err := ParseSpecs([]string{"groq=groq.sh", " ", "ollama=ollama.sh", "perplexity=pplx.sh"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("Expected 3 specs, got %d", len(specs))
	}
	for i, name := range []string{"groq", "ollama", "perplexity"} {
		if specs[i].Name != name || specs[i].Rank != i {
			t.Errorf("Expected %s at rank %d, got %s at rank %d", name, i, specs[i].Name, specs[i].Rank)
		}
	}
}

func TestParseSpecs_Duplicate(t *testing.T) {
	if _, err := ParseSpecs([]string{"a=x", "a=y"}); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("Expected ErrInvalidSpec for duplicate names, got %v", err)
	}
}

func TestEntries(t *testing.T) {
	specs, _ := ParseSpecs([]string{"a=x", "b=y"})
	entries := Entries(specs, func(s Spec) string { return s.Program })
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Name != "b" || entries[1].Rank != 1 || entries[1].Provider != "y" {
		t.Errorf("Unexpected entry %+v", entries[1])
	}
}
