package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
)

const orderCols = `id,user_id,name,email,active_whatsapp_number,payment_method,file,product_id,product_name,quantity,total_price,status,created_at,updated_at`

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// likeEscaper makes user search text match literally under ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// sortColumns maps accepted sortBy values onto columns.
var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"totalPrice": "total_price",
	"quantity":   "quantity",
	"status":     "status",
	"name":       "name",
}

// SortColumn reports whether field is an accepted sortBy value.
func SortColumn(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

func (r *OrderRepo) Create(ctx context.Context, o domain.Order) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO orders(`+orderCols+`)
		VALUES(:id,:user_id,:name,:email,:active_whatsapp_number,:payment_method,:file,:product_id,:product_name,:quantity,:total_price,:status,:created_at,:updated_at)`, o)
	return err
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.GetContext(ctx, &o, r.db.Rebind(`SELECT `+orderCols+` FROM orders WHERE id=?`), id); err != nil {
		return nil, err
	}
	return &o, nil
}

// List applies f and returns one page plus the total number of matches.
func (r *OrderRepo) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, f.PaymentMethod)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
			OR LOWER(active_whatsapp_number) LIKE ? ESCAPE '\'
			OR LOWER(product_name) LIKE ? ESCAPE '\' OR LOWER(id) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM orders`+cond), args...); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	limit, page := f.Limit, f.Page
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	q := `SELECT ` + orderCols + ` FROM orders` + cond +
		` ORDER BY ` + col + ` ` + dir + `, id ` + dir + ` LIMIT ? OFFSET ?`
	out := []domain.Order{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), append(args, limit, (page-1)*limit)...); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT `+orderCols+` FROM orders WHERE user_id=? ORDER BY created_at DESC, id DESC`), userID)
	return out, err
}

// Update applies a patch that does not approve the order.
func (r *OrderRepo) Update(ctx context.Context, id string, p domain.OrderPatch, now string) (*domain.Order, error) {
	sets, args := patchSets(p)
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	if err := expectOne(res); err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	o, err := r.Get(ctx, id)
	return o, apperr.FromStore(err, "order")
}

// Approve moves an order to approved and decrements the referenced item's
// stock in the same transaction. Either both writes commit or neither does.
// An order that is already approved yields a Conflict and stock is untouched.
func (r *OrderRepo) Approve(ctx context.Context, id string, p domain.OrderPatch, now string) (*domain.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT ` + orderCols + ` FROM orders WHERE id=?`
	if r.db.DriverName() == "pgx" {
		q += ` FOR UPDATE`
	}
	var cur domain.Order
	if err := tx.GetContext(ctx, &cur, tx.Rebind(q), id); err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	if cur.Status == domain.OrderApproved {
		return nil, apperr.Conflict("order already approved")
	}

	productID, qty := cur.ProductID, cur.Quantity
	if p.ProductID != nil {
		productID = *p.ProductID
	}
	if p.Quantity != nil {
		qty = *p.Quantity
	}
	if strings.TrimSpace(productID) == "" || qty <= 0 {
		return nil, apperr.Validation("productId and quantity are required to approve an order")
	}

	approved := domain.OrderApproved
	p.Status = &approved
	sets, args := patchSets(p)
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id, string(domain.OrderApproved))
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status <> ?`), args...)
	if err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, apperr.FromStore(err, "order")
	} else if n == 0 {
		return nil, apperr.Conflict("order already approved")
	}

	if err := decrementStock(ctx, tx, productID, qty, now); err != nil {
		return nil, err
	}

	var out domain.Order
	if err := tx.GetContext(ctx, &out, tx.Rebind(`SELECT `+orderCols+` FROM orders WHERE id=?`), id); err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	return &out, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM orders WHERE id=?`), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func patchSets(p domain.OrderPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.ActiveWhatsappNumber != nil {
		add("active_whatsapp_number", *p.ActiveWhatsappNumber)
	}
	if p.PaymentMethod != nil {
		add("payment_method", *p.PaymentMethod)
	}
	if p.File != nil {
		add("file", *p.File)
	}
	if p.ProductID != nil {
		add("product_id", *p.ProductID)
	}
	if p.ProductName != nil {
		add("product_name", *p.ProductName)
	}
	if p.Quantity != nil {
		add("quantity", *p.Quantity)
	}
	if p.TotalPrice != nil {
		add("total_price", *p.TotalPrice)
	}
	return sets, args
}
