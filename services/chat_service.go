//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"

	"github.com/samber/lo"
)

type IChatService interface {
	Conversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
	ListUsers() ([]UserSummary, error)
	GetNetwork(userID string) (Network, error)
}

type UserSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Network is the social graph of one user with usernames resolved.
type Network struct {
	Friends        []UserSummary `json:"friends"`
	FriendRequests []UserSummary `json:"friendRequests"`
}

type ChatService struct {
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewChatService(messages repositories.IMessageRepository, users repositories.IUserRepository) *ChatService {
	return &ChatService{messages: messages, users: users}
}

// Conversation returns the history between two users, oldest first.
func (s *ChatService) Conversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	return s.messages.FindConversation(ctx, domain.UserID(userA), domain.UserID(userB))
}

func (s *ChatService) ListUsers() ([]UserSummary, error) {
	users, err := s.users.ListUsers()
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u repositories.User, _ int) UserSummary {
		return UserSummary{ID: u.ID, Username: u.Username}
	}), nil
}

// GetNetwork skips ids that no longer resolve to an account.
func (s *ChatService) GetNetwork(userID string) (Network, error) {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return Network{}, err
	}
	return Network{
		Friends:        s.resolve(user.Friends),
		FriendRequests: s.resolve(user.FriendRequests),
	}, nil
}

func (s *ChatService) resolve(ids []string) []UserSummary {
	return lo.FilterMap(ids, func(id string, _ int) (UserSummary, bool) {
		u, err := s.users.GetUser(id)
		if err != nil {
			return UserSummary{}, false
		}
		return UserSummary{ID: u.ID, Username: u.Username}, true
	})
}
