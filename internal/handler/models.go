package handler

import (
	"time"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
)

// ClaimRequest carries a cleaner's attempt to accept an order.
type ClaimRequest struct {
	CleanerID int64  `json:"cleaner_id" validate:"required"`
	Code      string `json:"code" validate:"required"`
}

// ClaimResponse is returned to the winning cleaner.
type ClaimResponse struct {
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}

type CreateOrderRequest struct {
	PropertyID     int64   `json:"property_id" validate:"required"`
	HostName       string  `json:"host_name"`
	HostPhone      string  `json:"host_phone"`
	CheckoutTime   string  `json:"checkout_time" validate:"required"`
	Price          float64 `json:"price" validate:"gte=0"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type UpdateOrderRequest struct {
	CheckoutTime *string  `json:"checkout_time"`
	Price        *float64 `json:"price" validate:"omitempty,gt=0"`
	Notes        *string  `json:"notes"`
	Photos       *string  `json:"photos"`
}

// Order is the JSON representation of a cleaning order.
type Order struct {
	ID                string     `json:"id"`
	PropertyID        int64      `json:"property_id"`
	PropertyName      string     `json:"property_name,omitempty"`
	PropertyAddress   string     `json:"property_address,omitempty"`
	HostName          string     `json:"host_name,omitempty"`
	HostPhone         string     `json:"host_phone,omitempty"`
	CheckoutTime      string     `json:"checkout_time"`
	Price             float64    `json:"price"`
	Status            string     `json:"status"`
	AssignedCleanerID *int64     `json:"assigned_cleaner_id,omitempty"`
	CleanerName       string     `json:"cleaner_name,omitempty"`
	AssignedAt        *time.Time `json:"assigned_at,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Photos            string     `json:"photos,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type RegisterCleanerRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

type Cleaner struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone,omitempty"`
	Email     string  `json:"email,omitempty"`
	Status    string  `json:"status"`
	Rating    float64 `json:"rating"`
	TotalJobs int     `json:"total_jobs"`
	Code      string  `json:"code,omitempty"`
}

type CreatePropertyRequest struct {
	Name                string `json:"name" validate:"required"`
	Address             string `json:"address" validate:"required"`
	Bedrooms            int    `json:"bedrooms" validate:"gte=0"`
	Bathrooms           int    `json:"bathrooms" validate:"gte=0"`
	CleaningTimeMinutes int    `json:"cleaning_time_minutes" validate:"gte=0"`
	Checklist           string `json:"cleaning_checklist"`
	Notes               string `json:"notes"`
}

type Property struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Address             string `json:"address"`
	Bedrooms            int    `json:"bedrooms"`
	Bathrooms           int    `json:"bathrooms"`
	CleaningTimeMinutes int    `json:"cleaning_time_minutes"`
	Checklist           string `json:"cleaning_checklist,omitempty"`
	Notes               string `json:"notes,omitempty"`
	Status              string `json:"status"`
}

type Host struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type Stats struct {
	Properties        int `json:"properties"`
	AvailableCleaners int `json:"available_cleaners"`
	OpenOrders        int `json:"open_orders"`
	CompletedToday    int `json:"completed_today"`
}

func OrderEntityToJSON(o entities.Order) Order {
	return Order{
		ID:                o.ID,
		PropertyID:        o.PropertyID,
		PropertyName:      o.PropertyName,
		PropertyAddress:   o.PropertyAddress,
		HostName:          o.HostName,
		HostPhone:         o.HostPhone,
		CheckoutTime:      o.CheckoutTime,
		Price:             o.Price,
		Status:            string(o.Status),
		AssignedCleanerID: o.AssignedCleanerID,
		CleanerName:       o.CleanerName,
		AssignedAt:        o.AssignedAt,
		Notes:             o.Notes,
		Photos:            o.Photos,
		CreatedAt:         o.CreatedAt,
	}
}

func CleanerEntityToJSON(c entities.Cleaner) Cleaner {
	return Cleaner{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Status:    c.Status,
		Rating:    c.Rating,
		TotalJobs: c.TotalJobs,
		Code:      c.Code,
	}
}

func PropertyEntityToJSON(p entities.Property) Property {
	return Property{
		ID:                  p.ID,
		Name:                p.Name,
		Address:             p.Address,
		Bedrooms:            p.Bedrooms,
		Bathrooms:           p.Bathrooms,
		CleaningTimeMinutes: p.CleaningTimeMinutes,
		Checklist:           p.Checklist,
		Notes:               p.Notes,
		Status:              p.Status,
	}
}

func HostEntityToJSON(h entities.Host) Host {
	return Host{
		ID:    h.ID,
		Name:  h.Name,
		Phone: h.Phone,
		Code:  h.Code,
	}
}

func StatsEntityToJSON(s entities.Stats) Stats {
	return Stats{
		Properties:        s.Properties,
		AvailableCleaners: s.AvailableCleaners,
		OpenOrders:        s.OpenOrders,
		CompletedToday:    s.CompletedToday,
	}
}

func (r UpdateOrderRequest) ToEntity() entities.OrderUpdate {
	return entities.OrderUpdate{
		CheckoutTime: r.CheckoutTime,
		Price:        r.Price,
		Notes:        r.Notes,
		Photos:       r.Photos,
	}
}
