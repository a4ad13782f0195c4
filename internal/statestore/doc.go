// Package statestore provides the text-value store that holds the
// serialised pre-heat state between evaluations.
//
// Values are opaque strings keyed by name. The store makes no attempt to
// interpret them; the preheat package owns the JSON layout.
//
//	store := statestore.NewSQLiteStore(db.DB)
//	raw, err := store.Get(ctx, "preheat_state")
//	if errors.Is(err, statestore.ErrNotFound) {
//	    raw = ""
//	}
package statestore
