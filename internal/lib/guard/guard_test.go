package guard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwner(t *testing.T) {
	t.Parallel()

	require.NoError(t, Owner(10, 10))
	require.ErrorIs(t, Owner(10, 20), ErrForbidden)
}
