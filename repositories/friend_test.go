package repositories

import (
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Friend_Request_Then_Accept(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db)
	friends := NewFriendRepository(db)
	alice, err := users.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)
	bob, err := users.CreateUser("bob", "bob@example.com", "hash")
	req.NoError(err)

	// When alice sends a request to bob
	req.NoError(friends.AddRequest(alice, bob))

	// Then the request is pending on bob
	pending, err := users.GetUser(bob)
	req.NoError(err)
	req.Equal([]string{alice}, pending.FriendRequests)

	// And a second request is rejected
	req.ErrorIs(friends.AddRequest(alice, bob), errors.ErrAlreadyRequested)

	// When bob accepts
	req.NoError(friends.Accept(bob, alice))

	// Then both are friends and nothing is pending
	bobUser, err := users.GetUser(bob)
	req.NoError(err)
	req.Empty(bobUser.FriendRequests)
	req.Equal([]string{alice}, bobUser.Friends)

	aliceUser, err := users.GetUser(alice)
	req.NoError(err)
	req.Equal([]string{bob}, aliceUser.Friends)

	// And a request between friends is rejected
	req.ErrorIs(friends.AddRequest(alice, bob), errors.ErrAlreadyRequested)
}

func Test_Friend_Decline(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db)
	friends := NewFriendRepository(db)
	alice, err := users.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)
	bob, err := users.CreateUser("bob", "bob@example.com", "hash")
	req.NoError(err)
	req.NoError(friends.AddRequest(alice, bob))

	req.NoError(friends.Decline(bob, alice))

	bobUser, err := users.GetUser(bob)
	req.NoError(err)
	req.Empty(bobUser.FriendRequests)
	req.Empty(bobUser.Friends)

	// And accepting a declined request fails
	req.ErrorIs(friends.Accept(bob, alice), errors.ErrNoPendingRequest)
}

func Test_Friend_Request_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db)
	friends := NewFriendRepository(db)
	alice, err := users.CreateUser("alice", "alice@example.com", "hash")
	req.NoError(err)

	req.ErrorIs(friends.AddRequest(alice, "missing"), errors.ErrUserNotFound)
}
