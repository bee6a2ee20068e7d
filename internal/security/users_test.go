package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-secadmin/go-secadmin/internal/db/models"
)

func TestFindUserByUsernameOrEmail(t *testing.T) {
	s := newTestStore(t)

	created := mustAddUser(t, s, "alice")

	byName, err := s.FindUser("alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := s.FindUser("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	absent, err := s.FindUser("nobody")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestAddUserDuplicate(t *testing.T) {
	s := newTestStore(t)

	mustAddUser(t, s, "alice")

	_, err := s.AddUser(nil, "alice", "A", "B", "other@example.com", "x", nil)
	require.ErrorIs(t, err, ErrUserNameOrEmailExists)

	_, err = s.AddUser(nil, "alice2", "A", "B", "alice@example.com", "x", nil)
	require.ErrorIs(t, err, ErrUserNameOrEmailExists)
}

func TestAddUserRecordsActor(t *testing.T) {
	s := newTestStore(t)

	actor := mustAddUser(t, s, "root")

	user, err := s.AddUser(actor, "alice", "A", "B", "alice@example.com", "x", nil)
	require.NoError(t, err)
	require.NotNil(t, user.CreatedByFk)
	assert.Equal(t, actor.ID, *user.CreatedByFk)
}

func TestGetUserByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUserByID(42)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetUserRolesReplaces(t *testing.T) {
	s := newTestStore(t)

	first, err := s.AddRole("First")
	require.NoError(t, err)

	second, err := s.AddRole("Second")
	require.NoError(t, err)

	user := mustAddUser(t, s, "alice", first)

	require.NoError(t, s.SetUserRoles(user, []*models.Role{second}))

	fresh, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Roles, 1)
	assert.Equal(t, "Second", fresh.Roles[0].Name)
}

func TestDeactivateUser(t *testing.T) {
	s := newTestStore(t)

	user := mustAddUser(t, s, "alice")
	require.True(t, user.Active)

	require.NoError(t, s.DeactivateUser(user.ID))

	fresh, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Active)
}

func TestUpdateUserAuthStat(t *testing.T) {
	s := newTestStore(t)

	user := mustAddUser(t, s, "alice")

	require.NoError(t, s.UpdateUserAuthStat(user, false))
	require.NoError(t, s.UpdateUserAuthStat(user, false))

	fresh, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.FailLoginCount)
	assert.Equal(t, 0, fresh.LoginCount)
	assert.Nil(t, fresh.LastLogin)

	require.NoError(t, s.UpdateUserAuthStat(fresh, true))

	fresh, err = s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.FailLoginCount, "success resets the failure streak")
	assert.Equal(t, 1, fresh.LoginCount)
	assert.NotNil(t, fresh.LastLogin)
}

func TestGetAllUsersPagination(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		mustAddUser(t, s, name)
	}

	users, total, err := s.GetAllUsers(2, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.EqualValues(t, 3, total)

	users, total, err = s.GetAllUsers(2, 2)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.EqualValues(t, 3, total)
}

func TestRegisterUserLifecycle(t *testing.T) {
	s := newTestStore(t)

	reg, err := s.AddRegisterUser("alice", "A", "B", "alice@example.com", "hash", "regh")
	require.NoError(t, err)

	found, err := s.FindRegisterUser("regh")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reg.ID, found.ID)

	require.NoError(t, s.DelRegisterUser(found))

	found, err = s.FindRegisterUser("regh")
	require.NoError(t, err)
	assert.Nil(t, found)
}
