package admin

import "tienda-be/internal/apperr"

var (
	ErrInvalidCredentials = apperr.New(apperr.ErrAuth, "Usuario o contraseña incorrectos")
	ErrNoCredentials      = apperr.New(apperr.ErrValidation, "no admin credentials configured")
)
