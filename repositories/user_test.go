package repositories

import (
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Create_And_Fetch_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	// When a user is created
	id, err := repository.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)
	req.NotEmpty(id)

	// Then it can be fetched by id, email and username
	byID, err := repository.GetUser(id)
	req.NoError(err)
	req.Equal("alice", byID.Username)
	req.Equal("hash", byID.PasswordHash)

	byEmail, err := repository.GetUserByEmail("Alice@Example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)

	byUsername, err := repository.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal(id, byUsername.ID)
}

func Test_Create_User_Duplicate(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))
	_, err := repository.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)

	// When the email is reused
	_, err = repository.CreateUser("alice2", "alice@example.com", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)

	// When the username is reused
	_, err = repository.CreateUser("alice", "other@example.com", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetUser("missing")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUserByEmail("missing@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_List_Users_Sorted_By_Username(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))
	for _, name := range []string{"clara", "alice", "bob"} {
		_, err := repository.CreateUser(name, name+"@example.com", "hash")
		req.NoError(err)
	}

	users, err := repository.ListUsers()

	req.NoError(err)
	req.Len(users, 3)
	req.Equal("alice", users[0].Username)
	req.Equal("bob", users[1].Username)
	req.Equal("clara", users[2].Username)
}
