package httpapi

import (
	"errors"
	"net/http"

	"tienda-be/internal/apperr"
	"tienda-be/internal/logger"
	"tienda-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func init() {
	// Prices and totals go out as JSON numbers, as the storefront expects.
	decimal.MarshalJSONWithoutQuotes = true
}

var errMalformedJSON = apperr.New(apperr.ErrValidation, "JSON inválido")

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends {"error": msg}. Server-side failures keep the engine
// message and are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	utils.WriteJSONError(w, err.Error(), code)
}

type messageResponse struct {
	Message string `json:"mensaje"`
}

type createdResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"mensaje"`
}
