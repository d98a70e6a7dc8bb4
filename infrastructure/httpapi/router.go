package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the REST endpoints and the websocket gateway on /ws.
// When guard is not nil it protects the user, history and friend routes.
func NewRouter(handler *Handler, gateway http.Handler, guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Chat relay is running."))
	})
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	r.Handle("/ws", gateway)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Get("/stats", handler.stats)

		r.Group(func(r chi.Router) {
			if guard != nil {
				r.Use(guard)
			}
			r.Get("/users", handler.listUsers)
			r.Get("/users/{id}", handler.getNetwork)
			r.Get("/messages/{user1}/{user2}", handler.conversation)
			r.Post("/friends/request", handler.sendFriendRequest)
			r.Post("/friends/accept", handler.acceptFriend)
			r.Post("/friends/decline", handler.declineFriend)
		})
	})
	return r
}
