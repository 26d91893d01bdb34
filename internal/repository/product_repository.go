package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gym-management/internal/database"
	"github.com/iliyamo/gym-management/internal/model"
)

// ProductRepo manages the point-of-sale catalogue and its stock levels.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// Create inserts p and sets its id.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	p.ID = uuid.NewString()
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO products (id, name, sku, price_cents, stock, is_active) VALUES (?,?,?,?,?,?)",
		p.ID, p.Name, p.SKU, p.PriceCents, p.Stock, p.IsActive)
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

func (r *ProductRepo) Update(ctx context.Context, p model.Product) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE products SET name=?, sku=?, price_cents=?, stock=?, is_active=? WHERE id=?",
		p.Name, p.SKU, p.PriceCents, p.Stock, p.IsActive, p.ID)
	if isDuplicate(err) {
		return ErrConflict
	}
	return mustAffect(res, err)
}

const productCols = "id, name, sku, price_cents, stock, is_active, created_at, updated_at"

func scanProduct(s rowScanner) (model.Product, error) {
	var p model.Product
	err := s.Scan(&p.ID, &p.Name, &p.SKU, &p.PriceCents, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetForUpdate locks the product row until the transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(database.Conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id=? FOR UPDATE", id))
	return p, notFound(err)
}

// DecrementStock removes qty units; it matches no row when stock is short.
func (r *ProductRepo) DecrementStock(ctx context.Context, id string, qty int) error {
	return mustAffect(database.Conn(ctx, r.db).ExecContext(ctx,
		"UPDATE products SET stock=stock-? WHERE id=? AND stock>=?", qty, id, qty))
}

// List returns active products, or all of them when includeInactive is set.
func (r *ProductRepo) List(ctx context.Context, includeInactive bool) ([]model.Product, error) {
	q := "SELECT " + productCols + " FROM products"
	if !includeInactive {
		q += " WHERE is_active=1"
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, q+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
