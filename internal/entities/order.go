package entities

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusAccepted  OrderStatus = "accepted"
	StatusArrived   OrderStatus = "arrived"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the only forward transition allowed from s. The lifecycle is
// strictly open -> accepted -> arrived -> completed; cancellation is handled
// separately because it is reachable from any non-terminal state.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case StatusOpen:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusArrived, true
	case StatusArrived:
		return StatusCompleted, true
	default:
		return "", false
	}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusAccepted, StatusArrived, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID           string
	PropertyID   int64
	HostName     string
	HostPhone    string
	CheckoutTime string
	Price        float64
	Status       OrderStatus

	// Non-nil exactly while Status is accepted, arrived or completed.
	AssignedCleanerID *int64
	AssignedAt        *time.Time

	Notes     string
	Photos    string
	CreatedAt time.Time

	// Denormalized for listings, empty elsewhere.
	PropertyName    string
	PropertyAddress string
	CleanerName     string
}

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderConflict       = errors.New("order conflict")
	ErrCleanerNotFound     = errors.New("cleaner not found")
	ErrPropertyNotFound    = errors.New("property not found")
	ErrHostNotFound        = errors.New("host not found")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrDuplicateSubmission = errors.New("duplicate submission")
)

// OrderUpdate carries the optional fields a PATCH may change. Nil means
// "leave as is"; validation happens before the update reaches the store.
type OrderUpdate struct {
	CheckoutTime *string
	Price        *float64
	Notes        *string
	Photos       *string
}

func (u OrderUpdate) Empty() bool {
	return u.CheckoutTime == nil && u.Price == nil && u.Notes == nil && u.Photos == nil
}
