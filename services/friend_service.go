//go:generate go run go.uber.org/mock/mockgen -source=friend_service.go -destination=../mocks/mock_friend_service.go -package=mocks
package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
)

type IFriendService interface {
	SendRequest(ctx context.Context, fromUserID, toUsername string) error
	Accept(ctx context.Context, currentUserID, requesterID string) error
	Decline(currentUserID, requesterID string) error
}

// FriendService manages friend requests and notifies the target user
// through the signaler when they are online.
type FriendService struct {
	log     *slog.Logger
	users   repositories.IUserRepository
	friends repositories.IFriendRepository
	relay   contract.ISignaler
}

func NewFriendService(log *slog.Logger, users repositories.IUserRepository,
	friends repositories.IFriendRepository, relay contract.ISignaler) *FriendService {
	return &FriendService{log: log, users: users, friends: friends, relay: relay}
}

func (s *FriendService) SendRequest(ctx context.Context, fromUserID, toUsername string) error {
	from, err := s.users.GetUser(fromUserID)
	if err != nil {
		return err
	}
	to, err := s.users.GetUserByUsername(toUsername)
	if err != nil {
		return err
	}
	if to.ID == from.ID {
		return fmt.Errorf("%w: cannot befriend yourself", errors.ErrInvalidCommand)
	}
	if err = s.friends.AddRequest(from.ID, to.ID); err != nil {
		return err
	}

	s.log.Debug("Friend request sent", "from", from.ID, "to", to.ID)
	s.relay.RelaySocialEvent(ctx, domain.UserID(to.ID), event.SocialNotification{
		Kind:         event.FriendRequestName,
		FromUserID:   domain.UserID(from.ID),
		FromUsername: from.Username,
	})
	return nil
}

func (s *FriendService) Accept(ctx context.Context, currentUserID, requesterID string) error {
	current, err := s.users.GetUser(currentUserID)
	if err != nil {
		return err
	}
	if err = s.friends.Accept(currentUserID, requesterID); err != nil {
		return err
	}

	s.log.Debug("Friend request accepted", "user", currentUserID, "requester", requesterID)
	s.relay.RelaySocialEvent(ctx, domain.UserID(requesterID), event.SocialNotification{
		Kind:         event.FriendRequestAcceptedName,
		FromUserID:   domain.UserID(current.ID),
		FromUsername: current.Username,
	})
	return nil
}

func (s *FriendService) Decline(currentUserID, requesterID string) error {
	return s.friends.Decline(currentUserID, requesterID)
}
