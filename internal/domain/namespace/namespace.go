package namespace

import (
	"fmt"
	"strings"
)

// Namespace is a searchable partition, one per ingested source file.
type Namespace struct {
	Name        string
	VectorCount int64
}

// Names returns the namespace names in order.
func Names(nss []Namespace) []string {
	out := make([]string, len(nss))
	for i, ns := range nss {
		out[i] = ns.Name
	}
	return out
}

// Validate rejects names that would break the key layout.
func Validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("namespace is required")
	}
	if strings.Contains(name, ":") {
		return fmt.Errorf("namespace %q must not contain ':'", name)
	}
	return nil
}

// FromFile derives the namespace of an ingested file: its base name.
func FromFile(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return strings.ReplaceAll(path, ":", "_")
}
