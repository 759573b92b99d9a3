package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"tienda-be/internal/auth"
	"tienda-be/internal/utils"
)

type loginRequest struct {
	Username string `json:"usuario"`
	Password string `json:"password"`
}

// login accepts JSON or a urlencoded form.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, r, errMalformedJSON)
			return
		}
	} else {
		req.Username = r.PostFormValue("usuario")
		req.Password = r.PostFormValue("password")
	}

	session, err := a.gate.Login(r.Context(), req.Username, req.Password)
	a.metrics.LoginAttempt(err == nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, session.Token, a.gate.TTL(), a.opts.SecureCookies)
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Login exitoso"})
}

func (a *API) check(w http.ResponseWriter, r *http.Request) {
	status, err := a.gate.Check(r.Context(), auth.ExtractSessionToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, status)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.gate.Logout(r.Context(), auth.ExtractSessionToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	auth.ClearSessionCookie(w, a.opts.SecureCookies)
	utils.WriteJSON(w, http.StatusOK, messageResponse{Message: "Sesión cerrada"})
}
