package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the created_at format: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Order struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"nombre_cliente"`
	CustomerEmail string          `json:"email_cliente"`
	Address       string          `json:"direccion"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     string          `json:"created_at"`
}

type LineItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orden_id"`
	ProductID int64           `json:"producto_id"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
}

// ItemInput is one requested line. Fields are pointers so a missing value
// can be told apart from zero.
type ItemInput struct {
	ProductID *int64           `json:"id"`
	Quantity  *int             `json:"cantidad"`
	UnitPrice *decimal.Decimal `json:"precio"`
}

// PlaceOrderInput is the checkout payload. Total is stored as given.
type PlaceOrderInput struct {
	CustomerName  string          `json:"nombre_cliente"`
	CustomerEmail string          `json:"email_cliente"`
	Address       string          `json:"direccion"`
	Total         decimal.Decimal `json:"total"`
	Items         []ItemInput     `json:"items"`
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
