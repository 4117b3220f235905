package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/Liangwei-zhang/cleaning-service/internal/entities"
)

type RegistryRepo interface {
	CreateCleaner(ctx context.Context, c entities.Cleaner) (int64, error)
	GetCleanerByID(ctx context.Context, cleanerID int64) (entities.Cleaner, error)
	ListCleaners(ctx context.Context, status string) ([]entities.Cleaner, error)
	CreateProperty(ctx context.Context, p entities.Property) (int64, error)
	GetPropertyByID(ctx context.Context, propertyID int64) (entities.Property, error)
	ListProperties(ctx context.Context, status string) ([]entities.Property, error)
	GetHostByCode(ctx context.Context, code string) (entities.Host, error)
}

// registryService manages the collaborator entities around the claim core:
// cleaner profiles with their verification codes, properties and hosts.
type registryService struct {
	logger  *slog.Logger
	repo    RegistryRepo
	cache   Cache
	newCode func() string
}

func NewRegistryService(logger *slog.Logger, repo RegistryRepo, cache Cache) *registryService {
	return &registryService{
		logger:  logger.With(slog.String("service", "registry")),
		repo:    repo,
		cache:   cache,
		newCode: sixDigitCode,
	}
}

func sixDigitCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

type RegisterCleanerInput struct {
	Name  string
	Phone string
	Email string
}

// RegisterCleaner creates a cleaner profile and issues the verification
// code the cleaner later presents when claiming an order.
func (s *registryService) RegisterCleaner(ctx context.Context, in RegisterCleanerInput) (entities.Cleaner, error) {
	cleaner := entities.Cleaner{
		Name:   in.Name,
		Phone:  in.Phone,
		Email:  in.Email,
		Status: "available",
		Rating: 5.0,
		Code:   s.newCode(),
	}

	id, err := s.repo.CreateCleaner(ctx, cleaner)
	if err != nil {
		return entities.Cleaner{}, err
	}
	cleaner.ID = id

	s.cache.Invalidate(statsCacheKey)

	s.logger.InfoContext(ctx, "cleaner registered", slog.Int64("cleaner_id", id))
	return cleaner, nil
}

func (s *registryService) GetCleanerByID(ctx context.Context, cleanerID int64) (entities.Cleaner, error) {
	return s.repo.GetCleanerByID(ctx, cleanerID)
}

func (s *registryService) ListCleaners(ctx context.Context, status string) ([]entities.Cleaner, error) {
	if status == "" {
		status = "available"
	}
	return s.repo.ListCleaners(ctx, status)
}

type CreatePropertyInput struct {
	Name                string
	Address             string
	Bedrooms            int
	Bathrooms           int
	CleaningTimeMinutes int
	Checklist           string
	Notes               string
}

func (s *registryService) CreateProperty(ctx context.Context, in CreatePropertyInput) (entities.Property, error) {
	property := entities.Property{
		Name:                in.Name,
		Address:             in.Address,
		Bedrooms:            in.Bedrooms,
		Bathrooms:           in.Bathrooms,
		CleaningTimeMinutes: in.CleaningTimeMinutes,
		Checklist:           in.Checklist,
		Notes:               in.Notes,
		Status:              "active",
	}
	if property.Bedrooms <= 0 {
		property.Bedrooms = 1
	}
	if property.Bathrooms <= 0 {
		property.Bathrooms = 1
	}
	if property.CleaningTimeMinutes <= 0 {
		property.CleaningTimeMinutes = 120
	}

	id, err := s.repo.CreateProperty(ctx, property)
	if err != nil {
		return entities.Property{}, err
	}
	property.ID = id

	s.cache.Invalidate(statsCacheKey)
	return property, nil
}

func (s *registryService) GetPropertyByID(ctx context.Context, propertyID int64) (entities.Property, error) {
	return s.repo.GetPropertyByID(ctx, propertyID)
}

func (s *registryService) ListProperties(ctx context.Context, status string) ([]entities.Property, error) {
	if status == "" {
		status = "active"
	}
	return s.repo.ListProperties(ctx, status)
}

// HostLoginByCode resolves a host from a verification code.
func (s *registryService) HostLoginByCode(ctx context.Context, code string) (entities.Host, error) {
	return s.repo.GetHostByCode(ctx, code)
}
