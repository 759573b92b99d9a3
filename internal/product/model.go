package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Class partitions the catalog. It is fixed when a product is created.
type Class string

const (
	ClassGeneral    Class = "general"
	ClassCollection Class = "coleccion"
)

func (c Class) Valid() bool {
	return c == ClassGeneral || c == ClassCollection
}

// ParseClass accepts the stored value and the English alias.
func ParseClass(s string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ClassGeneral):
		return ClassGeneral, nil
	case string(ClassCollection), "collection":
		return ClassCollection, nil
	default:
		return "", ErrInvalidClass
	}
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Image       *string         `json:"imagen"`
	Stock       int             `json:"stock"`
	Category    string          `json:"categoria"`
	Class       Class           `json:"tipo"`
}

// NewProductInput holds the caller-supplied fields of a product. Zero values
// are the stored defaults.
type NewProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
}

// Validate checks the fields every stored product must satisfy.
func (in NewProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if in.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
