// Package actionerr defines the user-visible rejection plane for
// player-issued imperative actions. Action rejections never partially
// mutate state; they carry a category and an optional numeric parameter
// (e.g. the money still required).
package actionerr

import "fmt"

// Code identifies a rejection category.
type Code string

const (
	InvalidTile           Code = "invalid-tile"
	InvalidPlayer         Code = "invalid-player"
	CannotBuildOnTile     Code = "cannot-build-on-tile"
	InsufficientMoney     Code = "insufficient-money"
	InvalidTechName       Code = "invalid-tech-name"
	TechAlreadyAcquired   Code = "tech-already-acquired"
	TechCategoryConflict  Code = "tech-category-conflict"
	TechInsufficientMoney Code = "tech-insufficient-money"
	InvalidFactory        Code = "invalid-factory"
	InvalidTurret         Code = "invalid-turret"
	InvalidProbe          Code = "invalid-probe"
)

// Error is the concrete error type returned by rejected actions.
type Error struct {
	Code     Code
	Amount   float64
	HasValue bool
}

func (e *Error) Error() string {
	if e.HasValue {
		return fmt.Sprintf("%s (required: %.2f)", e.Code, e.Amount)
	}
	return string(e.Code)
}

// New builds a plain rejection with no numeric parameter.
func New(code Code) error {
	return &Error{Code: code}
}

// WithAmount builds a rejection carrying a required-amount parameter (e.g.
// insufficient-money-with-required-amount).
func WithAmount(code Code, amount float64) error {
	return &Error{Code: code, Amount: amount, HasValue: true}
}
