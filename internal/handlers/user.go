package handlers

import (
	"net/http"

	"github.com/nkiryanov/contactbox/internal/handlers/render"
	"github.com/nkiryanov/contactbox/internal/handlers/userctx"
)

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, userResponse{ID: user.ID, Username: user.Username, Email: user.Email})
	})
}
