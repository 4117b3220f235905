package repo

import (
	"database/sql"
	"time"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
)

type Order struct {
	ID                string          `db:"id"`
	PropertyID        int64           `db:"property_id"`
	HostName          sql.NullString  `db:"host_name"`
	HostPhone         sql.NullString  `db:"host_phone"`
	CheckoutTime      string          `db:"checkout_time"`
	Price             float64         `db:"price"`
	Status            string          `db:"status"`
	AssignedCleanerID sql.NullInt64   `db:"assigned_cleaner_id"`
	AssignedAt        sql.NullTime    `db:"assigned_at"`
	Notes             sql.NullString  `db:"notes"`
	Photos            sql.NullString  `db:"photos"`
	CreatedAt         time.Time       `db:"created_at"`
	PropertyName      sql.NullString  `db:"property_name"`
	PropertyAddress   sql.NullString  `db:"property_address"`
	CleanerName       sql.NullString  `db:"cleaner_name"`
}

type Cleaner struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Phone     sql.NullString `db:"phone"`
	Email     sql.NullString `db:"email"`
	Status    string         `db:"status"`
	Rating    float64        `db:"rating"`
	TotalJobs int            `db:"total_jobs"`
	Code      sql.NullString `db:"code"`
	CreatedAt time.Time      `db:"created_at"`
}

type Property struct {
	ID                  int64          `db:"id"`
	Name                string         `db:"name"`
	Address             string         `db:"address"`
	Bedrooms            int            `db:"bedrooms"`
	Bathrooms           int            `db:"bathrooms"`
	CleaningTimeMinutes int            `db:"cleaning_time_minutes"`
	Checklist           sql.NullString `db:"cleaning_checklist"`
	Notes               sql.NullString `db:"notes"`
	Status              string         `db:"status"`
	CreatedAt           time.Time      `db:"created_at"`
}

type Host struct {
	ID    int64          `db:"id"`
	Name  string         `db:"name"`
	Phone string         `db:"phone"`
	Code  sql.NullString `db:"code"`
}

func OrderToEntity(o Order) entities.Order {
	order := entities.Order{
		ID:              o.ID,
		PropertyID:      o.PropertyID,
		HostName:        nullStringToString(o.HostName),
		HostPhone:       nullStringToString(o.HostPhone),
		CheckoutTime:    o.CheckoutTime,
		Price:           o.Price,
		Status:          entities.OrderStatus(o.Status),
		Notes:           nullStringToString(o.Notes),
		Photos:          nullStringToString(o.Photos),
		CreatedAt:       o.CreatedAt,
		PropertyName:    nullStringToString(o.PropertyName),
		PropertyAddress: nullStringToString(o.PropertyAddress),
		CleanerName:     nullStringToString(o.CleanerName),
	}

	if o.AssignedCleanerID.Valid {
		id := o.AssignedCleanerID.Int64
		order.AssignedCleanerID = &id
	}
	if o.AssignedAt.Valid {
		at := o.AssignedAt.Time
		order.AssignedAt = &at
	}

	return order
}

func CleanerToEntity(c Cleaner) entities.Cleaner {
	return entities.Cleaner{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     nullStringToString(c.Phone),
		Email:     nullStringToString(c.Email),
		Status:    c.Status,
		Rating:    c.Rating,
		TotalJobs: c.TotalJobs,
		Code:      nullStringToString(c.Code),
		CreatedAt: c.CreatedAt,
	}
}

func PropertyToEntity(p Property) entities.Property {
	return entities.Property{
		ID:                  p.ID,
		Name:                p.Name,
		Address:             p.Address,
		Bedrooms:            p.Bedrooms,
		Bathrooms:           p.Bathrooms,
		CleaningTimeMinutes: p.CleaningTimeMinutes,
		Checklist:           nullStringToString(p.Checklist),
		Notes:               nullStringToString(p.Notes),
		Status:              p.Status,
		CreatedAt:           p.CreatedAt,
	}
}

func HostToEntity(h Host) entities.Host {
	return entities.Host{
		ID:    h.ID,
		Name:  h.Name,
		Phone: h.Phone,
		Code:  nullStringToString(h.Code),
	}
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
