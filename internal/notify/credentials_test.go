package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestPasswordKeychain(t *testing.T) {
	keyring.MockInit()

	pw, err := ResolvePassword("billing@example.com", "")
	require.NoError(t, err)
	assert.Empty(t, pw, "missing entry resolves to empty")

	require.NoError(t, StorePassword("billing@example.com", "secret"))

	pw, err = ResolvePassword("billing@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)

	pw, err = ResolvePassword("billing@example.com", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw, "explicit password wins")

	require.NoError(t, ForgetPassword("billing@example.com"))
	require.NoError(t, ForgetPassword("billing@example.com"))

	pw, err = ResolvePassword("billing@example.com", "")
	require.NoError(t, err)
	assert.Empty(t, pw)

	assert.Error(t, StorePassword("", "x"))
}
