package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StartsEmpty(t *testing.T) {
	r := New()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())
	assert.False(t, r.Contains("alpha"))
}

func TestRegistry_AddIsIdempotent(t *testing.T) {
	r := New()

	r.Add("alpha")
	r.Add("alpha")

	require.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"alpha"}, r.All())
	assert.True(t, r.Contains("alpha"))
}

func TestRegistry_AllKeepsInsertionOrder(t *testing.T) {
	r := New()

	r.Add("gamma")
	r.Add("alpha")
	r.Add("beta")
	r.Add("alpha")

	assert.Equal(t, []string{"gamma", "alpha", "beta"}, r.All())
}

func TestRegistry_RemoveAbsentIsNoop(t *testing.T) {
	r := New()
	r.Add("alpha")

	r.Remove("beta")

	assert.Equal(t, []string{"alpha"}, r.All())
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	r.Add("alpha")
	r.Add("beta")
	r.Add("gamma")

	r.Remove("beta")

	assert.False(t, r.Contains("beta"))
	assert.Equal(t, []string{"alpha", "gamma"}, r.All())

	// A removed name can be added again and goes to the end.
	r.Add("beta")
	assert.Equal(t, []string{"alpha", "gamma", "beta"}, r.All())
}

func TestRegistry_AllReturnsCopy(t *testing.T) {
	r := New()
	r.Add("alpha")

	names := r.All()
	names[0] = "mutated"

	assert.Equal(t, []string{"alpha"}, r.All())
}
