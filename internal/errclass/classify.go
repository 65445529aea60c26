package errclass

import "context"

// Entry binds a kind to the predicate that recognizes it.
type Entry[K ~string, E any] struct {
	Kind  K
	Match Predicate[E]
}

// Filters is evaluated in declaration order; the first match wins.
type Filters[K ~string, E any] []Entry[K, E]

// Classify returns the kind of the first entry whose predicate is true.
// ok is false when nothing matched. A predicate error stops the walk and is
// returned as is; callers should treat it as unclassified and fatal.
func Classify[K ~string, E any](ctx context.Context, filters Filters[K, E], e E) (kind K, ok bool, err error) {
	for _, entry := range filters {
		if err := ctx.Err(); err != nil {
			return kind, false, err
		}
		matched, err := entry.Match(ctx, e)
		if err != nil {
			return kind, false, err
		}
		if matched {
			return entry.Kind, true, nil
		}
	}
	return kind, false, nil
}
