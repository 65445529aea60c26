// Package errclass maps loosely-typed provider and contract errors into a
// small closed set of kinds the rest of the system can act on.
//
// Filters are ordered lists of predicates. Predicates may perform network
// reads, so every combinator evaluates strictly in order and stops as soon
// as the outcome is known.
package errclass

import "context"

// Predicate reports whether e matches. A returned error aborts classification.
type Predicate[E any] func(ctx context.Context, e E) (bool, error)

// And is true iff every predicate is true. Predicates after the first false
// one are never invoked.
func And[E any](preds ...Predicate[E]) Predicate[E] {
	return func(ctx context.Context, e E) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx, e)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// Or is true iff any predicate is true. Predicates after the first true one
// are never invoked.
func Or[E any](preds ...Predicate[E]) Predicate[E] {
	return func(ctx context.Context, e E) (bool, error) {
		for _, p := range preds {
			ok, err := p(ctx, e)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Is lifts a plain boolean check into a Predicate.
func Is[E any](check func(e E) bool) Predicate[E] {
	return func(_ context.Context, e E) (bool, error) {
		return check(e), nil
	}
}
