package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
	"github.com/Liangwei-zhang/cleaning-service/pkg/trm"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type postgresRepo struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewPostgresRepo(db *sqlx.DB) *postgresRepo {
	return &postgresRepo{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const orderColumns = "o.id, o.property_id, o.host_name, o.host_phone, o.checkout_time, " +
	"o.price, o.status, o.assigned_cleaner_id, o.assigned_at, o.notes, o.photos, o.created_at"

func (r *postgresRepo) CreateOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Insert("orders").
		Columns("id", "property_id", "host_name", "host_phone", "checkout_time", "price", "status", "created_at").
		Values(o.ID, o.PropertyID, nullString(o.HostName), nullString(o.HostPhone),
			o.CheckoutTime, o.Price, string(o.Status), o.CreatedAt).
		MustSql()

	_, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetOrderByID(ctx context.Context, orderID string) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns,
		"p.name AS property_name", "p.address AS property_address", "c.name AS cleaner_name").
		From("orders o").
		LeftJoin("properties p ON o.property_id = p.id").
		LeftJoin("cleaners c ON o.assigned_cleaner_id = c.id").
		Where(sq.Eq{"o.id": orderID}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return OrderToEntity(order), nil
}

func (r *postgresRepo) ListOrders(ctx context.Context, status entities.OrderStatus) ([]entities.Order, error) {
	b := r.qb.Select(orderColumns,
		"p.name AS property_name", "p.address AS property_address", "c.name AS cleaner_name").
		From("orders o").
		LeftJoin("properties p ON o.property_id = p.id").
		LeftJoin("cleaners c ON o.assigned_cleaner_id = c.id").
		OrderBy("o.checkout_time ASC")

	if status != "" {
		b = b.Where(sq.Eq{"o.status": string(status)})
	}

	query, args := b.MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}

	result := make([]entities.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, OrderToEntity(o))
	}
	return result, nil
}

func (r *postgresRepo) GetOrderStatus(ctx context.Context, orderID string) (entities.OrderStatus, error) {
	query, args := r.qb.Select("status").
		From("orders").
		Where(sq.Eq{"id": orderID}).
		MustSql()

	var status string
	err := r.getContext(ctx, &status, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", entities.ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get order status: %w", err)
	}
	return entities.OrderStatus(status), nil
}

// AcceptOpenOrder performs the open -> accepted transition as a single
// conditional statement: the write applies only when the stored status is
// still open at write time. Returns the number of rows transitioned (0 or 1).
func (r *postgresRepo) AcceptOpenOrder(ctx context.Context, orderID string, cleanerID int64, at time.Time) (int64, error) {
	query, args := r.qb.Update("orders").
		Set("status", string(entities.StatusAccepted)).
		Set("assigned_cleaner_id", cleanerID).
		Set("assigned_at", at).
		Where(sq.Eq{"id": orderID, "status": string(entities.StatusOpen)}).
		Suffix("RETURNING status").
		MustSql()

	return r.transition(ctx, entities.StatusAccepted, query, args)
}

// TransitionStatus applies expected -> next conditionally, same contract as
// AcceptOpenOrder.
func (r *postgresRepo) TransitionStatus(ctx context.Context, orderID string, expected, next entities.OrderStatus) (int64, error) {
	query, args := r.qb.Update("orders").
		Set("status", string(next)).
		Where(sq.Eq{"id": orderID, "status": string(expected)}).
		Suffix("RETURNING status").
		MustSql()

	return r.transition(ctx, next, query, args)
}

// CancelOrder moves any non-terminal order to cancelled.
func (r *postgresRepo) CancelOrder(ctx context.Context, orderID string) (int64, error) {
	query, args := r.qb.Update("orders").
		Set("status", string(entities.StatusCancelled)).
		Where(sq.Eq{"id": orderID}).
		Where(sq.NotEq{"status": []string{
			string(entities.StatusCompleted),
			string(entities.StatusCancelled),
		}}).
		Suffix("RETURNING status").
		MustSql()

	return r.transition(ctx, entities.StatusCancelled, query, args)
}

func (r *postgresRepo) transition(ctx context.Context, want entities.OrderStatus, query string, args []any) (int64, error) {
	var got string
	err := r.getContext(ctx, &got, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to transition order: %w", err)
	}
	// RETURNING must reflect the intended target, anything else means the
	// write only partially applied.
	if entities.OrderStatus(got) != want {
		return 0, fmt.Errorf("order left in status %q after transition to %q", got, want)
	}
	return 1, nil
}

func (r *postgresRepo) UpdateOrder(ctx context.Context, orderID string, upd entities.OrderUpdate) error {
	b := r.qb.Update("orders").Where(sq.Eq{"id": orderID})

	if upd.CheckoutTime != nil {
		b = b.Set("checkout_time", *upd.CheckoutTime)
	}
	if upd.Price != nil {
		b = b.Set("price", *upd.Price)
	}
	if upd.Notes != nil {
		b = b.Set("notes", nullString(*upd.Notes))
	}
	if upd.Photos != nil {
		b = b.Set("photos", nullString(*upd.Photos))
	}

	query, args := b.MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) CreateCleaner(ctx context.Context, c entities.Cleaner) (int64, error) {
	query, args := r.qb.Insert("cleaners").
		Columns("name", "phone", "email", "status", "rating", "total_jobs", "code").
		Values(c.Name, nullString(c.Phone), nullString(c.Email), c.Status, c.Rating, c.TotalJobs, nullString(c.Code)).
		Suffix("RETURNING id").
		MustSql()

	var id int64
	if err := r.getContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("failed to create cleaner: %w", err)
	}
	return id, nil
}

func (r *postgresRepo) GetCleanerByID(ctx context.Context, cleanerID int64) (entities.Cleaner, error) {
	query, args := r.qb.Select("id", "name", "phone", "email", "status", "rating", "total_jobs", "code", "created_at").
		From("cleaners").
		Where(sq.Eq{"id": cleanerID}).
		MustSql()

	var cleaner Cleaner
	err := r.getContext(ctx, &cleaner, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Cleaner{}, entities.ErrCleanerNotFound
	}
	if err != nil {
		return entities.Cleaner{}, fmt.Errorf("failed to get cleaner: %w", err)
	}
	return CleanerToEntity(cleaner), nil
}

func (r *postgresRepo) ListCleaners(ctx context.Context, status string) ([]entities.Cleaner, error) {
	query, args := r.qb.Select("id", "name", "phone", "email", "status", "rating", "total_jobs", "code", "created_at").
		From("cleaners").
		Where(sq.Eq{"status": status}).
		OrderBy("rating DESC").
		MustSql()

	var cleaners []Cleaner
	if err := r.selectContext(ctx, &cleaners, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select cleaners: %w", err)
	}

	result := make([]entities.Cleaner, 0, len(cleaners))
	for _, c := range cleaners {
		result = append(result, CleanerToEntity(c))
	}
	return result, nil
}

func (r *postgresRepo) CreateProperty(ctx context.Context, p entities.Property) (int64, error) {
	query, args := r.qb.Insert("properties").
		Columns("name", "address", "bedrooms", "bathrooms", "cleaning_time_minutes", "cleaning_checklist", "notes", "status").
		Values(p.Name, p.Address, p.Bedrooms, p.Bathrooms, p.CleaningTimeMinutes,
			nullString(p.Checklist), nullString(p.Notes), p.Status).
		Suffix("RETURNING id").
		MustSql()

	var id int64
	if err := r.getContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("failed to create property: %w", err)
	}
	return id, nil
}

func (r *postgresRepo) GetPropertyByID(ctx context.Context, propertyID int64) (entities.Property, error) {
	query, args := r.qb.Select("id", "name", "address", "bedrooms", "bathrooms",
		"cleaning_time_minutes", "cleaning_checklist", "notes", "status", "created_at").
		From("properties").
		Where(sq.Eq{"id": propertyID}).
		MustSql()

	var property Property
	err := r.getContext(ctx, &property, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Property{}, entities.ErrPropertyNotFound
	}
	if err != nil {
		return entities.Property{}, fmt.Errorf("failed to get property: %w", err)
	}
	return PropertyToEntity(property), nil
}

func (r *postgresRepo) ListProperties(ctx context.Context, status string) ([]entities.Property, error) {
	query, args := r.qb.Select("id", "name", "address", "bedrooms", "bathrooms",
		"cleaning_time_minutes", "cleaning_checklist", "notes", "status", "created_at").
		From("properties").
		Where(sq.Eq{"status": status}).
		OrderBy("name ASC").
		MustSql()

	var properties []Property
	if err := r.selectContext(ctx, &properties, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select properties: %w", err)
	}

	result := make([]entities.Property, 0, len(properties))
	for _, p := range properties {
		result = append(result, PropertyToEntity(p))
	}
	return result, nil
}

func (r *postgresRepo) GetHostByCode(ctx context.Context, code string) (entities.Host, error) {
	query, args := r.qb.Select("id", "name", "phone", "code").
		From("hosts").
		Where(sq.Eq{"code": code}).
		MustSql()

	var host Host
	err := r.getContext(ctx, &host, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Host{}, entities.ErrHostNotFound
	}
	if err != nil {
		return entities.Host{}, fmt.Errorf("failed to get host: %w", err)
	}
	return HostToEntity(host), nil
}

func (r *postgresRepo) Stats(ctx context.Context) (entities.Stats, error) {
	query, args := r.qb.Select(
		"(SELECT COUNT(*) FROM properties WHERE status = 'active') AS properties",
		"(SELECT COUNT(*) FROM cleaners WHERE status = 'available') AS available_cleaners",
		"(SELECT COUNT(*) FROM orders WHERE status = 'open') AS open_orders",
		"(SELECT COUNT(*) FROM orders WHERE status = 'completed' AND created_at::date = CURRENT_DATE) AS completed_today",
	).MustSql()

	var row struct {
		Properties        int `db:"properties"`
		AvailableCleaners int `db:"available_cleaners"`
		OpenOrders        int `db:"open_orders"`
		CompletedToday    int `db:"completed_today"`
	}
	if err := r.getContext(ctx, &row, query, args...); err != nil {
		return entities.Stats{}, fmt.Errorf("failed to select stats: %w", err)
	}

	return entities.Stats{
		Properties:        row.Properties,
		AvailableCleaners: row.AvailableCleaners,
		OpenOrders:        row.OpenOrders,
		CompletedToday:    row.CompletedToday,
	}, nil
}

func (r *postgresRepo) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *postgresRepo) getContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return r.db.GetContext(ctx, dest, query, args...)
}

func (r *postgresRepo) selectContext(ctx context.Context, dest any, query string, args ...any) error {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return r.db.SelectContext(ctx, dest, query, args...)
}
