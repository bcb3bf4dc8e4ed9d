package handle

import (
	"net/http"

	"quiklii/internal/xpkg/errs"

	"github.com/go-chi/render"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func jsonError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, errs.HTTPStatus(err))
	render.JSON(w, r, errorBody{
		Error:   string(errs.KindOf(err)),
		Message: err.Error(),
	})
}

func jsonResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
