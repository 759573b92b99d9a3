package order

import "tienda-be/internal/apperr"

var (
	ErrEmptyOrder    = apperr.New(apperr.ErrValidation, "Orden sin items")
	ErrInvalidItem   = apperr.New(apperr.ErrValidation, "cada item requiere id, cantidad y precio")
	ErrOrderNotFound = apperr.New(apperr.ErrNotFound, "orden no encontrada")
)
