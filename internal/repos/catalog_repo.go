package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
)

const catalogCols = `id,title,description,price,quantity,file,created_at,updated_at`

type CatalogRepo struct{ db *sqlx.DB }

func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// List returns every catalog item, newest first.
func (r *CatalogRepo) List(ctx context.Context) ([]domain.CatalogItem, error) {
	out := []domain.CatalogItem{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+catalogCols+` FROM catalog_items ORDER BY created_at DESC, id`)
	return out, err
}

func (r *CatalogRepo) ByID(ctx context.Context, id string) (*domain.CatalogItem, error) {
	var it domain.CatalogItem
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`SELECT `+catalogCols+` FROM catalog_items WHERE id=?`), id)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *CatalogRepo) Create(ctx context.Context, it domain.CatalogItem) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO catalog_items(id,title,description,price,quantity,file,created_at,updated_at)
		VALUES(:id,:title,:description,:price,:quantity,:file,:created_at,:updated_at)`, it)
	return err
}

// Update replaces every editable column of an existing item.
func (r *CatalogRepo) Update(ctx context.Context, it domain.CatalogItem) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE catalog_items
		SET title=:title, description=:description, price=:price, quantity=:quantity, file=:file, updated_at=:updated_at
		WHERE id=:id`, it)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes the item. Orders that reference it keep their product_name.
func (r *CatalogRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM catalog_items WHERE id=?`), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// decrementStock subtracts by units only if enough stock exists. It runs on the
// caller's transaction so the decrement commits with the order status write.
func decrementStock(ctx context.Context, tx *sqlx.Tx, id string, by int, now string) error {
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE catalog_items
		SET quantity = quantity - ?, updated_at = ?
		WHERE id = ? AND quantity >= ?`), by, now, id, by)
	if err != nil {
		return apperr.FromStore(err, "catalog item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.FromStore(err, "catalog item")
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM catalog_items WHERE id=?`), id); err != nil {
		return apperr.FromStore(err, "catalog item")
	}
	if exists == 0 {
		return apperr.NotFound("catalog item not found")
	}
	return apperr.Conflict("insufficient stock")
}
