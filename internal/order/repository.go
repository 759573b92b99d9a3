package order

import (
	"context"
	"database/sql"
	"errors"

	"tienda-be/internal/apperr"

	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateOrderTx(ctx context.Context, o Order, items []LineItem) (int64, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListItems(ctx context.Context, orderID int64) ([]LineItem, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// CreateOrderTx inserts the order and its line items in one transaction.
// The OrderID of each item is ignored and set to the new order id.
func (r *repository) CreateOrderTx(ctx context.Context, o Order, items []LineItem) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	defer tx.Rollback()

	// 1. Insert order
	var orderID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ordenes (nombre_cliente, email_cliente, direccion, total, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		o.CustomerName,
		o.CustomerEmail,
		o.Address,
		o.Total.String(),
		o.CreatedAt,
	).Scan(&orderID)
	if err != nil {
		return 0, apperr.Storage(err)
	}

	// 2. Insert items in request order
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detalle_orden (orden_id, producto_id, cantidad, precio_unitario)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, orderID, it.ProductID, it.Quantity, it.UnitPrice.String()); err != nil {
			return 0, apperr.Storage(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage(err)
	}
	return orderID, nil
}

func (r *repository) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nombre_cliente, email_cliente, direccion, total, created_at
		FROM ordenes
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var (
			o         Order
			name      sql.NullString
			email     sql.NullString
			address   sql.NullString
			total     decimal.NullDecimal
			createdAt sql.NullString
		)
		if err := rows.Scan(&o.ID, &name, &email, &address, &total, &createdAt); err != nil {
			return nil, apperr.Storage(err)
		}
		o.CustomerName = name.String
		o.CustomerEmail = email.String
		o.Address = address.String
		o.Total = total.Decimal
		o.CreatedAt = createdAt.String
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}

	return orders, nil
}

func (r *repository) ListItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM ordenes WHERE id = $1`, orderID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, orden_id, producto_id, cantidad, precio_unitario
		FROM detalle_orden
		WHERE orden_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	items := make([]LineItem, 0)
	for rows.Next() {
		var (
			it        LineItem
			productID sql.NullInt64
			quantity  sql.NullInt64
			unitPrice decimal.NullDecimal
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &productID, &quantity, &unitPrice); err != nil {
			return nil, apperr.Storage(err)
		}
		it.ProductID = productID.Int64
		it.Quantity = int(quantity.Int64)
		it.UnitPrice = unitPrice.Decimal
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}

	return items, nil
}
