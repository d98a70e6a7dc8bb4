//go:generate go run go.uber.org/mock/mockgen -source=friend.go -destination=../mocks/mock_friend_repository.go -package=mocks
package repositories

import (
	"chat-relay/errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

type IFriendRepository interface {
	AddRequest(fromID, toID string) error
	Accept(currentID, requesterID string) error
	Decline(currentID, requesterID string) error
}

// FriendRepository edits the friend lists carried by the user records.
// Both sides of a friendship are written in the same transaction.
type FriendRepository struct {
	db *badger.DB
}

func NewFriendRepository(db *badger.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// AddRequest records a pending request on the target user.
// It fails with ErrAlreadyRequested when a request is pending or the users are already friends.
func (f *FriendRepository) AddRequest(fromID, toID string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		if _, err := readUser(txn, fromID); err != nil {
			return err
		}
		to, err := readUser(txn, toID)
		if err != nil {
			return err
		}
		if slices.Contains(to.FriendRequests, fromID) || slices.Contains(to.Friends, fromID) {
			return errors.ErrAlreadyRequested
		}
		to.FriendRequests = append(to.FriendRequests, fromID)
		return writeUser(txn, to)
	})
}

// Accept removes the pending request and makes both users friends.
func (f *FriendRepository) Accept(currentID, requesterID string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		current, err := readUser(txn, currentID)
		if err != nil {
			return err
		}
		requester, err := readUser(txn, requesterID)
		if err != nil {
			return err
		}
		if !slices.Contains(current.FriendRequests, requesterID) {
			return errors.ErrNoPendingRequest
		}
		current.FriendRequests = without(current.FriendRequests, requesterID)
		current.Friends = appendUnique(current.Friends, requesterID)
		requester.Friends = appendUnique(requester.Friends, currentID)
		// A crossed request from the other side is settled too.
		requester.FriendRequests = without(requester.FriendRequests, currentID)

		if err = writeUser(txn, current); err != nil {
			return err
		}
		return writeUser(txn, requester)
	})
}

// Decline drops the pending request, if any.
func (f *FriendRepository) Decline(currentID, requesterID string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		current, err := readUser(txn, currentID)
		if err != nil {
			return err
		}
		current.FriendRequests = without(current.FriendRequests, requesterID)
		return writeUser(txn, current)
	})
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(candidate string) bool { return candidate == id })
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
