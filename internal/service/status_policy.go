package service

import (
	"fmt"

	"pos-service/internal/apperror"
	"pos-service/internal/models"
)

// StatusPolicy validates whole-bill status transitions.
type StatusPolicy interface {
	Name() string
	Allow(bill *models.Bill, to models.BillStatus) error
}

// PermissivePolicy allows any status to move to any other.
type PermissivePolicy struct{}

func (PermissivePolicy) Name() string { return "permissive" }

func (PermissivePolicy) Allow(*models.Bill, models.BillStatus) error { return nil }

// StrictPolicy treats CANCELLED as terminal and refuses to cancel a bill that
// already has refunded units.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return "strict" }

func (StrictPolicy) Allow(bill *models.Bill, to models.BillStatus) error {
	from := bill.Status
	if from == models.BillStatusCancelled && to != models.BillStatusCancelled {
		return apperror.ErrTransitionDenied.WithMessage("bill %s is cancelled", bill.SeqCode)
	}
	if from == models.BillStatusActive && to == models.BillStatusCancelled && bill.HasRefunds() {
		return apperror.ErrTransitionDenied.WithMessage("bill %s has refunded items and cannot be cancelled", bill.SeqCode)
	}
	return nil
}

// NewStatusPolicy resolves a policy by its configured name
func NewStatusPolicy(name string) (StatusPolicy, error) {
	switch name {
	case "", "permissive":
		return PermissivePolicy{}, nil
	case "strict":
		return StrictPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown status policy %q", name)
}
