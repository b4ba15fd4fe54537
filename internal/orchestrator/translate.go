package orchestrator

import (
	"fmt"
	"strings"

	"cadence/internal/tools"
)

// The model protocol disallows dots in tool identifiers, so tool names
// cross the LLM boundary in underscore form. Translation is table-driven
// off the closed tool set so it stays lossless; this is the only place in
// the codebase where the underscore form exists.

var wireToName = func() map[string]tools.Name {
	m := make(map[string]tools.Name, len(tools.AllNames))
	for _, n := range tools.AllNames {
		m[wireName(n)] = n
	}
	return m
}()

func wireName(n tools.Name) string {
	return strings.ReplaceAll(string(n), ".", "_")
}

func toolNameFromWire(wire string) (tools.Name, error) {
	if n, ok := wireToName[wire]; ok {
		return n, nil
	}
	// Accept the dotted form too; some models echo it back unchanged.
	if n, err := tools.ParseName(wire); err == nil {
		return n, nil
	}
	return "", fmt.Errorf("unknown tool %q", wire)
}
