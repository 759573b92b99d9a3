package product

import (
	"context"
	"database/sql"

	"tienda-be/internal/apperr"

	"github.com/shopspring/decimal"
)

type Repository interface {
	List(ctx context.Context, class Class) ([]Product, error)
	Create(ctx context.Context, p Product) (int64, error)
	Delete(ctx context.Context, id int64, class *Class) error
	Replace(ctx context.Context, id int64, p Product) (int64, error)
	ImageRefs(ctx context.Context) ([]string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const insertProduct = `
	INSERT INTO productos (nombre, descripcion, precio, imagen, stock, categoria, tipo)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
`

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) List(ctx context.Context, class Class) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nombre, descripcion, precio, imagen, stock, categoria, tipo
		FROM productos
		WHERE tipo = $1
		ORDER BY id DESC
	`, string(class))
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}

	return products, nil
}

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	id, err := insert(ctx, r.db, p)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return id, nil
}

func (r *repository) Delete(ctx context.Context, id int64, class *Class) error {
	var (
		res sql.Result
		err error
	)
	if class != nil {
		res, err = r.db.ExecContext(ctx, `DELETE FROM productos WHERE id = $1 AND tipo = $2`, id, string(*class))
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM productos WHERE id = $1`, id)
	}
	if err != nil {
		return apperr.Storage(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Replace deletes the product of p.Class with the given id and inserts p in
// the same transaction. The replacement gets a new id.
func (r *repository) Replace(ctx context.Context, id int64, p Product) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM productos WHERE id = $1 AND tipo = $2`, id, string(p.Class))
	if err != nil {
		return 0, apperr.Storage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(err)
	}
	if affected == 0 {
		return 0, ErrProductNotFound
	}

	newID, err := insert(ctx, tx, p)
	if err != nil {
		return 0, apperr.Storage(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage(err)
	}
	return newID, nil
}

func (r *repository) ImageRefs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT imagen FROM productos WHERE imagen IS NOT NULL`)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, apperr.Storage(err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return refs, nil
}

func insert(ctx context.Context, q queryRower, p Product) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, insertProduct,
		p.Name, p.Description, p.Price.String(), nullString(p.Image), p.Stock, p.Category, string(p.Class),
	).Scan(&id)
	return id, err
}

func scanProduct(rows *sql.Rows) (Product, error) {
	var (
		p           Product
		name        sql.NullString
		description sql.NullString
		price       decimal.NullDecimal
		image       sql.NullString
		stock       sql.NullInt64
		category    sql.NullString
		class       sql.NullString
	)

	if err := rows.Scan(&p.ID, &name, &description, &price, &image, &stock, &category, &class); err != nil {
		return Product{}, err
	}

	p.Name = name.String
	p.Description = description.String
	p.Price = price.Decimal
	if image.Valid {
		p.Image = &image.String
	}
	p.Stock = int(stock.Int64)
	p.Category = category.String
	p.Class = ClassGeneral
	if class.Valid {
		p.Class = Class(class.String)
	}
	return p, nil
}

// nullString flattens an optional text column to a plain driver value.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
