package queue

import "context"

// PlanEncoder can serialize itself for storage. This is satisfied by
// *fetchplan.Envelope without requiring a direct import of that package.
type PlanEncoder interface {
	Encode() (string, error)
}

// PersistPlan encodes env and writes the result to item via store.Update.
// On success the updated item fields (including any store-generated values)
// are written back through the item pointer. Returns a non-nil error when
// encoding or persistence fails; callers decide how to log the result.
func PersistPlan(ctx context.Context, store *Store, item *Item, env PlanEncoder) error {
	encoded, err := env.Encode()
	if err != nil {
		return err
	}
	copy := *item
	copy.PlanJSON = encoded
	if store != nil {
		if err := store.Update(ctx, &copy); err != nil {
			return err
		}
	}
	*item = copy
	return nil
}
