package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/scorekeep/scorekeep/internal/apperr"
)

type completeResponse struct {
	Complete bool `json:"complete"`
}

type failureResponse struct {
	Complete    bool          `json:"complete"`
	Msg         string        `json:"msg"`
	Description string        `json:"description,omitempty"`
	Link        []apperr.Link `json:"link,omitempty"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("response encoding failed", zap.Error(err))
	}
}

// writeError shapes a failure envelope from the error taxonomy. Endpoint
// remediation links are attached only when the error does not already carry
// its own.
func (a *API) writeError(w http.ResponseWriter, err error, links ...apperr.Link) {
	appErr := apperr.Classify(err, apperr.Server("Operation Failed", "Something went wrong please try again"))
	if len(appErr.Links) == 0 && len(links) > 0 {
		appErr = appErr.WithLinks(links...)
	}
	if appErr.Status >= 500 {
		a.log.Error("request failed", zap.Error(err))
	}
	a.writeJSON(w, appErr.Status, failureResponse{
		Msg:         appErr.Msg,
		Description: appErr.Description,
		Link:        appErr.Links,
	})
}

// decodeBody fills v from the JSON request body. An empty body leaves v
// zeroed; the flow steps decide which fields are required.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.UserBadRequest("Invalid credentials", "The request body is not valid JSON")
	}
	return nil
}
