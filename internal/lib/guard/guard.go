package guard

import "errors"

// ErrForbidden means the acting user does not own the resource.
var ErrForbidden = errors.New("forbidden")

// Owner is the ownership check applied before every per-resource mutation:
// the acting identity must match the resource's owning user id.
func Owner(ownerID, actorID int64) error {
	if ownerID != actorID {
		return ErrForbidden
	}
	return nil
}
