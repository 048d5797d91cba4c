package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

// pgstateLockNotAvailable is raised when SET LOCAL lock_timeout expires
// while waiting on FOR UPDATE rows.
const pgstateLockNotAvailable = "55P03"

type productRow struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          string   `bun:"id,pk"`
	Name        string   `bun:"name,notnull"`
	Description string   `bun:"description"`
	Price       float64  `bun:"price,notnull"`
	ImageURL    string   `bun:"image_url"`
	Occasions   []string `bun:"occasions,array"`
}

type stockRow struct {
	bun.BaseModel `bun:"table:stock_levels,alias:s"`

	ProductID string `bun:"product_id,pk"`
	Quantity  int64  `bun:"quantity,notnull"`
}

type addonRow struct {
	bun.BaseModel `bun:"table:addons,alias:a"`

	Name        string  `bun:"name,pk"`
	Description string  `bun:"description"`
	Price       float64 `bun:"price,notnull"`
	ImageURL    string  `bun:"image_url"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID        string    `bun:"id,pk"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type orderItemRow struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	OrderID   string `bun:"order_id,pk"`
	ProductID string `bun:"product_id,pk"`
	Quantity  int64  `bun:"quantity,notnull"`
}

type memoryRow struct {
	bun.BaseModel `bun:"table:customer_memories,alias:cm"`

	ID            string    `bun:"id,pk"`
	CustomerPhone string    `bun:"customer_phone,notnull,unique"`
	Summary       string    `bun:"summary,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
}

// Postgres is the durable backend. Row exclusivity is plain SELECT ... FOR
// UPDATE in ascending product-ID order inside one transaction, bounded by a
// local lock_timeout so a contended order fails instead of hanging.
type Postgres struct {
	db          *bun.DB
	lockTimeout time.Duration
}

// PostgresOption customizes a Postgres store.
type PostgresOption func(*Postgres)

func WithPostgresLockTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		if d > 0 {
			p.lockTimeout = d
		}
	}
}

func NewPostgres(db *bun.DB, opts ...PostgresOption) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	p := &Postgres{db: db, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*productRow)(nil),
		(*stockRow)(nil),
		(*addonRow)(nil),
		(*orderRow)(nil),
		(*orderItemRow)(nil),
		(*memoryRow)(nil),
	}
	for _, model := range models {
		if _, err := p.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func (p *Postgres) Products(ctx context.Context, f ProductFilter) ([]contractx.Product, error) {
	var rows []productRow
	q := p.db.NewSelect().Model(&rows)
	if f.MinPrice > 0 {
		q = q.Where("price >= ?", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q = q.Where("price <= ?", f.MaxPrice)
	}
	if err := q.Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	out := make([]contractx.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.product())
	}
	return out, nil
}

func (p *Postgres) Product(ctx context.Context, id string) (contractx.Product, error) {
	var row productRow
	err := p.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Product{}, fmt.Errorf("product %q: %w", id, contractx.ErrNotFound)
	}
	if err != nil {
		return contractx.Product{}, fmt.Errorf("select product: %w", err)
	}
	return row.product(), nil
}

func (p *Postgres) StockOf(ctx context.Context, id string) (int64, error) {
	var row stockRow
	err := p.db.NewSelect().Model(&row).Where("product_id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("stock for %q: %w", id, contractx.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("select stock: %w", err)
	}
	return row.Quantity, nil
}

func (p *Postgres) Addons(ctx context.Context) ([]contractx.Addon, error) {
	var rows []addonRow
	if err := p.db.NewSelect().Model(&rows).Order("price ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select addons: %w", err)
	}
	out := make([]contractx.Addon, 0, len(rows))
	for _, r := range rows {
		out = append(out, contractx.Addon{
			Name:        r.Name,
			Description: r.Description,
			Price:       r.Price,
			ImageURL:    r.ImageURL,
		})
	}
	return out, nil
}

func (p *Postgres) Order(ctx context.Context, id string) (contractx.Order, error) {
	var row orderRow
	err := p.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Order{}, fmt.Errorf("order %q: %w", id, contractx.ErrNotFound)
	}
	if err != nil {
		return contractx.Order{}, fmt.Errorf("select order: %w", err)
	}
	var items []orderItemRow
	if err := p.db.NewSelect().Model(&items).Where("order_id = ?", id).Order("product_id ASC").Scan(ctx); err != nil {
		return contractx.Order{}, fmt.Errorf("select order items: %w", err)
	}
	o := contractx.Order{ID: row.ID, Status: contractx.OrderStatus(row.Status), CreatedAt: row.CreatedAt}
	for _, it := range items {
		o.Items = append(o.Items, contractx.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return o, nil
}

func (p *Postgres) UpdateStock(ctx context.Context, productIDs []string, fn func(StockTx) error) error {
	ids := dedupeSorted(productIDs)
	if len(ids) == 0 {
		return fmt.Errorf("update stock: no product ids")
	}
	err := p.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		timeoutMS := p.lockTimeout.Milliseconds()
		if timeoutMS <= 0 {
			timeoutMS = defaultLockTimeout.Milliseconds()
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeoutMS)); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}

		var rows []stockRow
		err := tx.NewSelect().Model(&rows).
			Where("product_id IN (?)", bun.In(ids)).
			Order("product_id ASC").
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("lock stock rows: %w", err)
		}
		if len(rows) != len(ids) {
			missing := missingIDs(ids, rows)
			return fmt.Errorf("stock for %q: %w", missing, contractx.ErrNotFound)
		}

		ptx := &postgresTx{
			staged: make(map[string]int64, len(rows)),
			stocks: make(map[string]int64, len(rows)),
		}
		for _, r := range rows {
			ptx.stocks[r.ProductID] = r.Quantity
		}
		if err := fn(ptx); err != nil {
			return err
		}

		for id, qty := range ptx.staged {
			res, err := tx.NewUpdate().Model((*stockRow)(nil)).
				Set("quantity = quantity - ?", qty).
				Where("product_id = ?", id).
				Where("quantity >= ?", qty).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if affected != 1 {
				return fmt.Errorf("decrement stock for %q: concurrent depletion", id)
			}
		}
		if ptx.order != nil {
			o := *ptx.order
			if _, err := tx.NewInsert().Model(&orderRow{
				ID:        o.ID,
				Status:    string(o.Status),
				CreatedAt: o.CreatedAt,
			}).Exec(ctx); err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
			items := make([]orderItemRow, 0, len(o.Items))
			for _, it := range o.Items {
				items = append(items, orderItemRow{OrderID: o.ID, ProductID: it.ProductID, Quantity: it.Quantity})
			}
			if len(items) > 0 {
				if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
					return fmt.Errorf("insert order items: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil && isLockTimeout(err) {
		return contractx.ErrLockTimeout
	}
	return err
}

func (p *Postgres) SaveSummary(ctx context.Context, rec contractx.MemoryRecord) (contractx.MemoryRecord, error) {
	row := memoryRow{
		ID:            rec.ID,
		CustomerPhone: rec.CustomerPhone,
		Summary:       rec.Summary,
		UpdatedAt:     rec.UpdatedAt,
		ExpiresAt:     rec.ExpiresAt,
	}
	_, err := p.db.NewInsert().Model(&row).
		On("CONFLICT (customer_phone) DO UPDATE").
		Set("summary = EXCLUDED.summary").
		Set("updated_at = EXCLUDED.updated_at").
		Set("expires_at = EXCLUDED.expires_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return contractx.MemoryRecord{}, fmt.Errorf("upsert memory: %w", err)
	}
	rec.ID = row.ID
	return rec, nil
}

func (p *Postgres) Summary(ctx context.Context, phone string) (contractx.MemoryRecord, error) {
	var row memoryRow
	err := p.db.NewSelect().Model(&row).
		Where("customer_phone = ?", phone).
		Where("expires_at > now()").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.MemoryRecord{}, fmt.Errorf("memory for %q: %w", phone, contractx.ErrNotFound)
	}
	if err != nil {
		return contractx.MemoryRecord{}, fmt.Errorf("select memory: %w", err)
	}
	return contractx.MemoryRecord{
		ID:            row.ID,
		CustomerPhone: row.CustomerPhone,
		Summary:       row.Summary,
		UpdatedAt:     row.UpdatedAt,
		ExpiresAt:     row.ExpiresAt,
	}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type postgresTx struct {
	stocks map[string]int64
	staged map[string]int64
	order  *contractx.Order
}

func (t *postgresTx) Available(productID string) (int64, error) {
	qty, ok := t.stocks[productID]
	if !ok {
		return 0, fmt.Errorf("stock for %q: %w", productID, contractx.ErrNotFound)
	}
	return qty - t.staged[productID], nil
}

func (t *postgresTx) Deduct(productID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("deduct %q: quantity must be positive", productID)
	}
	avail, err := t.Available(productID)
	if err != nil {
		return err
	}
	if avail < quantity {
		return fmt.Errorf("deduct %q: would go negative", productID)
	}
	t.staged[productID] += quantity
	return nil
}

func (t *postgresTx) InsertOrder(o contractx.Order) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("insert order: empty id")
	}
	t.order = &o
	return nil
}

func (r productRow) product() contractx.Product {
	return contractx.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		Occasions:   r.Occasions,
	}
}

func missingIDs(ids []string, rows []stockRow) string {
	have := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		have[r.ProductID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return strings.Join(missing, ",")
}

func isLockTimeout(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgstateLockNotAvailable
	}
	return false
}
