package vendor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// StatusUpdate carries the admin-controlled flag changes. Nil fields are
// left untouched.
type StatusUpdate struct {
	IsActive   *bool
	IsVerified *bool
}

// Service defines business logic related to vendor profiles.
type Service interface {
	Register(ctx context.Context, ownerID, name, description string) (*Vendor, error)
	GetByID(ctx context.Context, id string) (*Vendor, error)
	GetByOwner(ctx context.Context, ownerID string) (*Vendor, error)
	List(ctx context.Context, filter Filter) ([]*Vendor, int, error)
	SetStatus(ctx context.Context, id string, upd StatusUpdate) (*Vendor, error)
}

type service struct {
	repo Repository
}

// NewService creates a new vendor Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, ownerID, name, description string) (*Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	// One vendor profile per account.
	if _, err := s.repo.GetByOwner(ctx, ownerID); err == nil {
		return nil, ErrAlreadyOwner
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing vendor: %w", err)
	}

	var descPtr *string
	if d := strings.TrimSpace(description); d != "" {
		descPtr = &d
	}

	v := &Vendor{
		OwnerID:         ownerID,
		Name:            name,
		Description:     descPtr,
		ReputationScore: InitialReputation,
		IsVerified:      false,
		IsActive:        true,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}

	return v, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Vendor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByOwner(ctx context.Context, ownerID string) (*Vendor, error) {
	return s.repo.GetByOwner(ctx, ownerID)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Vendor, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) SetStatus(ctx context.Context, id string, upd StatusUpdate) (*Vendor, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.IsActive != nil {
		v.IsActive = *upd.IsActive
	}
	if upd.IsVerified != nil {
		v.IsVerified = *upd.IsVerified
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}
