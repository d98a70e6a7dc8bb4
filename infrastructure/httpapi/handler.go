package httpapi

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/gateway"
	"chat-relay/observability"
	"chat-relay/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    services.Profile `json:"user"`
}

type friendRequest struct {
	FromUserID string `json:"fromUserId"`
	ToUsername string `json:"toUsername"`
}

type friendDecision struct {
	CurrentUserID string `json:"currentUserId"`
	RequesterID   string `json:"requesterId"`
}

// Handler serves the REST side of the relay. Realtime traffic goes through
// the websocket gateway mounted next to it.
type Handler struct {
	log        *slog.Logger
	auth       services.IAuthService
	chat       services.IChatService
	friends    services.IFriendService
	monitoring *observability.MonitoringManager
}

func NewHandler(log *slog.Logger, auth services.IAuthService, chat services.IChatService,
	friends services.IFriendService, monitoring *observability.MonitoringManager) *Handler {
	return &Handler{log: log, auth: auth, chat: chat, friends: friends, monitoring: monitoring}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Message: "User registered successfully",
		Token:   session.Token,
		User:    session.User,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		Token:   session.Token,
		User:    session.User,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.chat.ListUsers()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Ternary(users == nil, []services.UserSummary{}, users))
}

func (h *Handler) getNetwork(w http.ResponseWriter, r *http.Request) {
	network, err := h.chat.GetNetwork(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if network.Friends == nil {
		network.Friends = []services.UserSummary{}
	}
	if network.FriendRequests == nil {
		network.FriendRequests = []services.UserSummary{}
	}
	writeJSON(w, http.StatusOK, network)
}

func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chat.Conversation(r.Context(), chi.URLParam(r, "user1"), chi.URLParam(r, "user2"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) gateway.MessagePayload {
		return gateway.ToMessagePayload(m)
	}))
}

func (h *Handler) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.friends.SendRequest(r.Context(), req.FromUserID, req.ToUsername); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Friend request sent")
}

func (h *Handler) acceptFriend(w http.ResponseWriter, r *http.Request) {
	var req friendDecision
	if !decode(w, r, &req) {
		return
	}
	if err := h.friends.Accept(r.Context(), req.CurrentUserID, req.RequesterID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Friend request accepted")
}

func (h *Handler) declineFriend(w http.ResponseWriter, r *http.Request) {
	var req friendDecision
	if !decode(w, r, &req) {
		return
	}
	if err := h.friends.Decline(req.CurrentUserID, req.RequesterID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Friend request declined")
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	h.monitoring.Refresh()
	writeJSON(w, http.StatusOK, h.monitoring.GetLatest())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if mapError(err) == http.StatusInternalServerError {
		h.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, err)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err))
		return false
	}
	return true
}
