package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Price      decimal.Decimal  `json:"price"`
	SalesPrice *decimal.Decimal `json:"sales_price,omitempty"`
	SalesFrom  *time.Time       `json:"sales_from,omitempty"`
	SalesTo    *time.Time       `json:"sales_to,omitempty"`
	IsSales    bool             `json:"is_sales"`
	Stock      int              `json:"stock"`
	IsActive   bool             `json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

const productColumns = `id, title, price, sales_price, sales_from, sales_to,
	is_sales, stock, is_active, created_at, updated_at`

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// GetMany returns the requested products keyed by id; missing ids are
// simply absent from the map.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE is_active ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		sales decimal.NullDecimal
	)
	err := row.Scan(&p.ID, &p.Title, &p.Price, &sales, &p.SalesFrom, &p.SalesTo,
		&p.IsSales, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if sales.Valid {
		p.SalesPrice = &sales.Decimal
	}
	return p, nil
}
