package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubRoles struct {
	admin bool
	err   error
	calls int
}

func (s *stubRoles) IsChannelAdmin(ctx context.Context, userID int64) (bool, error) {
	s.calls++
	return s.admin, s.err
}

func TestAuthorizer_Capabilities(t *testing.T) {
	ctx := context.Background()

	t.Run("StaticAdminGetsEverything", func(t *testing.T) {
		roles := &stubRoles{}
		a := NewAuthorizer([]int64{42}, roles)

		caps := a.Capabilities(ctx, 42)
		assert.True(t, caps.BypassGate)
		assert.True(t, caps.Panel)
		assert.True(t, caps.Upload)
		assert.True(t, caps.AdjustBalance)
		// Allowlist hit short-circuits the role lookup.
		assert.Zero(t, roles.calls)
	})

	t.Run("ChannelAdminGetsPanelAndUpload", func(t *testing.T) {
		a := NewAuthorizer([]int64{42}, &stubRoles{admin: true})

		caps := a.Capabilities(ctx, 7)
		assert.False(t, caps.BypassGate)
		assert.True(t, caps.Panel)
		assert.True(t, caps.Upload)
		assert.False(t, caps.AdjustBalance)
	})

	t.Run("RegularUserGetsNothing", func(t *testing.T) {
		a := NewAuthorizer([]int64{42}, &stubRoles{})
		assert.Equal(t, Capabilities{}, a.Capabilities(ctx, 7))
	})

	t.Run("LookupFailureGrantsNothing", func(t *testing.T) {
		a := NewAuthorizer([]int64{42}, &stubRoles{admin: true, err: errors.New("chat not found")})
		assert.Equal(t, Capabilities{}, a.Capabilities(ctx, 7))
	})

	t.Run("NilRoleChecker", func(t *testing.T) {
		a := NewAuthorizer([]int64{42}, nil)
		assert.Equal(t, Capabilities{}, a.Capabilities(ctx, 7))
	})
}

func TestAuthorizer_IsStaticAdmin(t *testing.T) {
	a := NewAuthorizer([]int64{1, 2}, nil)
	assert.True(t, a.IsStaticAdmin(1))
	assert.False(t, a.IsStaticAdmin(3))
	assert.Equal(t, []int64{1, 2}, a.AdminIDs())
}
