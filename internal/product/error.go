package product

import "tienda-be/internal/apperr"

var (
	ErrProductNotFound = apperr.New(apperr.ErrNotFound, "producto no encontrado")
	ErrInvalidClass    = apperr.New(apperr.ErrValidation, "tipo de producto inválido")
	ErrNameRequired    = apperr.New(apperr.ErrValidation, "el nombre es requerido")
	ErrNegativePrice   = apperr.New(apperr.ErrValidation, "el precio no puede ser negativo")
	ErrInvalidID       = apperr.New(apperr.ErrValidation, "id de producto inválido")
)
