package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

func TestAPIKeyCreateAndValidate(t *testing.T) {
	store := newTestStore(t)
	store.Config().APIKeyPrefix = "sa_"
	user := mustAddUser(t, store, "alice", "secret")

	svc := NewAPIKeyService(store)

	raw, key, err := svc.Create(user, "ci token", []string{"read", "write"}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "sa_"))
	assert.Equal(t, raw[:models.APIKeyPrefixLen], key.KeyPrefix)
	assert.NotContains(t, key.KeyHash, raw)
	assert.Equal(t, []string{"read", "write"}, Scopes(key))

	gotUser, gotKey, err := svc.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Equal(t, key.UUID, gotKey.UUID)
}

func TestAPIKeyValidateUnknownKey(t *testing.T) {
	store := newTestStore(t)
	svc := NewAPIKeyService(store)

	_, _, err := svc.Validate("sa_definitelynotarealkeyvalue1234567890abcdef")
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)

	_, _, err = svc.Validate("short")
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)
}

func TestAPIKeyValidateRevoked(t *testing.T) {
	store := newTestStore(t)
	user := mustAddUser(t, store, "alice", "secret")
	svc := NewAPIKeyService(store)

	raw, key, err := svc.Create(user, "doomed", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(user.ID, key.UUID))

	_, _, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)
}

func TestAPIKeyValidateExpired(t *testing.T) {
	store := newTestStore(t)
	user := mustAddUser(t, store, "alice", "secret")
	svc := NewAPIKeyService(store)

	past := time.Now().Add(-time.Hour)

	raw, _, err := svc.Create(user, "stale", nil, &past)
	require.NoError(t, err)

	_, _, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrAPIKeyInvalid)
}

func TestAPIKeyValidateDisabledOwner(t *testing.T) {
	store := newTestStore(t)
	user := mustAddUser(t, store, "alice", "secret")
	svc := NewAPIKeyService(store)

	raw, _, err := svc.Create(user, "orphaned", nil, nil)
	require.NoError(t, err)

	require.NoError(t, store.DeactivateUser(user.ID))

	_, _, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrUserAccountDisabled)
}

func TestAPIKeyValidateUpdatesLastUsed(t *testing.T) {
	store := newTestStore(t)
	user := mustAddUser(t, store, "alice", "secret")
	svc := NewAPIKeyService(store)

	raw, _, err := svc.Create(user, "tracked", nil, nil)
	require.NoError(t, err)

	_, key, err := svc.Validate(raw)
	require.NoError(t, err)
	assert.NotNil(t, key.LastUsedOn)
}

func TestAPIKeyListOwnKeysOnly(t *testing.T) {
	store := newTestStore(t)
	alice := mustAddUser(t, store, "alice", "secret")
	bob := mustAddUser(t, store, "bob", "secret")
	svc := NewAPIKeyService(store)

	_, _, err := svc.Create(alice, "one", nil, nil)
	require.NoError(t, err)
	_, _, err = svc.Create(alice, "two", nil, nil)
	require.NoError(t, err)
	_, _, err = svc.Create(bob, "other", nil, nil)
	require.NoError(t, err)

	keys, err := svc.List(alice.ID)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	for _, key := range keys {
		assert.Equal(t, alice.ID, key.UserID)
	}
}

func TestAPIKeyRevokeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	user := mustAddUser(t, store, "alice", "secret")
	svc := NewAPIKeyService(store)

	_, key, err := svc.Create(user, "doomed", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(user.ID, key.UUID))
	require.NoError(t, svc.Revoke(user.ID, key.UUID))
}

func TestAPIKeyRevokeForeignKey(t *testing.T) {
	store := newTestStore(t)
	alice := mustAddUser(t, store, "alice", "secret")
	bob := mustAddUser(t, store, "bob", "secret")
	svc := NewAPIKeyService(store)

	_, key, err := svc.Create(alice, "mine", nil, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Revoke(bob.ID, key.UUID), ErrAPIKeyInvalid)
}

func TestScopesEmpty(t *testing.T) {
	assert.Nil(t, Scopes(&models.ApiKey{}))
}
