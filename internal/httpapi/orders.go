package httpapi

import (
	"encoding/json"
	"net/http"

	"tienda-be/internal/order"
	"tienda-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxOrderBody = 1 << 20

type placeOrderResponse struct {
	Message string `json:"mensaje"`
	OrderID int64  `json:"orderId"`
}

func (a *API) placeOrder(w http.ResponseWriter, r *http.Request) {
	var input order.PlaceOrderInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBody)).Decode(&input); err != nil {
		writeError(w, r, errMalformedJSON)
		return
	}

	id, err := a.orders.PlaceOrder(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	a.metrics.OrderPlaced(len(input.Items))
	utils.WriteJSON(w, http.StatusCreated, placeOrderResponse{Message: "Orden creada", OrderID: id})
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (a *API) listOrderItems(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, r, order.ErrOrderNotFound)
		return
	}

	items, err := a.orders.ListItems(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}
