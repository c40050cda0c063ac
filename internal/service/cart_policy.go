package service

import (
	"fmt"

	"pos-service/internal/apperror"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// CartEntry is one requested item on a new bill, by id or product code.
type CartEntry struct {
	ItemID   int64  `json:"item_id"`
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// CartPolicy decides what happens to an entry that cannot become a bill line.
// Returning nil drops the entry; an error rejects the whole bill.
type CartPolicy interface {
	Name() string
	Invalid(index int, entry CartEntry, reason string) error
}

// LenientCartPolicy silently drops bad entries.
type LenientCartPolicy struct{}

func (LenientCartPolicy) Name() string { return "lenient" }

func (LenientCartPolicy) Invalid(index int, entry CartEntry, reason string) error {
	util.GetLogger().Debug("Dropping cart entry",
		zap.Int("index", index),
		zap.Int64("item_id", entry.ItemID),
		zap.String("code", entry.Code),
		zap.String("reason", reason))
	return nil
}

// StrictCartPolicy rejects the bill on the first bad entry.
type StrictCartPolicy struct{}

func (StrictCartPolicy) Name() string { return "strict" }

func (StrictCartPolicy) Invalid(index int, _ CartEntry, reason string) error {
	return apperror.ErrInvalidInput.WithMessage("item %d: %s", index+1, reason)
}

// NewCartPolicy resolves a policy by its configured name
func NewCartPolicy(name string) (CartPolicy, error) {
	switch name {
	case "", "lenient":
		return LenientCartPolicy{}, nil
	case "strict":
		return StrictCartPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown cart policy %q", name)
}
