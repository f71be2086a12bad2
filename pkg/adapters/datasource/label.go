package datasource

import (
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// MakeLabelCompatible returns label as the engine will accept it as a
// column alias. Labels longer than the engine's limit become a stable hash.
func MakeLabelCompatible(spec EngineSpec, label string) string {
	mutated := spec.MutateLabel(label)
	limit := spec.MaxColumnNameLength()
	if limit <= 0 || utf8.RuneCountInString(mutated) <= limit {
		return mutated
	}
	return spec.MutateLabel(truncateLabel(label, limit))
}

func truncateLabel(label string, limit int) string {
	hashed := fmt.Sprintf("%016x", xxhash.Sum64String(label))
	if len(hashed) > limit {
		hashed = hashed[:limit]
	}
	return hashed
}
