/*
Package equipment tracks tools and their loan/return lifecycle.

PURPOSE:
  Equipment records carry a status (available, loaned, maintenance), a
  weak reference to the current holder, and an append-only loan history.
  Loan and return are the only state transitions; history entries are
  appended, never rewritten.

SEE ALSO:
  - qr/interpret.go: Classifies scanned equipment codes
  - store/sqlite: Persistent store implementation
*/
package equipment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// EQUIPMENT - Tool record with loan history
// =============================================================================

type Status string

const (
	StatusAvailable   Status = "available"
	StatusLoaned      Status = "loaned"
	StatusMaintenance Status = "maintenance"
)

// LoanAction tags a loan history entry.
type LoanAction string

const (
	ActionLoan   LoanAction = "loan"
	ActionReturn LoanAction = "return"
)

// LoanEvent is one append-only history entry.
type LoanEvent struct {
	WorkerID string
	Action   LoanAction
	At       time.Time
}

// Equipment is a tool record. HolderID is a weak reference to a worker
// id, not ownership; it is only set while Status is StatusLoaned.
type Equipment struct {
	ID        string
	Name      string
	Category  string
	Status    Status
	HolderID  string
	History   []LoanEvent
	CreatedAt time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEquipmentNotFound is returned for unknown equipment ids.
	ErrEquipmentNotFound = errors.New("equipment not found")

	// ErrNotAvailable is returned when loaning equipment that is
	// already out or under maintenance.
	ErrNotAvailable = errors.New("equipment not available")

	// ErrNotLoaned is returned when returning equipment that is not out.
	ErrNotLoaned = errors.New("equipment not loaned")
)

// NotFoundError carries the missing id for caller-facing messages.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("equipment not found: %s", e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrEquipmentNotFound }

// StateError reports a loan/return against the wrong status.
type StateError struct {
	ID     string
	Status Status
	Op     LoanAction
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s equipment %s in status %q", e.Op, e.ID, e.Status)
}

func (e *StateError) Unwrap() error {
	if e.Op == ActionLoan {
		return ErrNotAvailable
	}
	return ErrNotLoaned
}

// =============================================================================
// STORE
// =============================================================================

// Store persists equipment records. GetEquipment returns (nil, nil) for
// unknown ids; SaveEquipment upserts the record including its history.
type Store interface {
	GetEquipment(ctx context.Context, id string) (*Equipment, error)
	SaveEquipment(ctx context.Context, eq Equipment) error
	ListEquipment(ctx context.Context) ([]Equipment, error)
}

// =============================================================================
// SERVICE - Loan/return transitions
// =============================================================================

// Service applies loan and return transitions against a store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Loan hands the equipment to a worker. The equipment must be available.
func (s *Service) Loan(ctx context.Context, equipmentID, workerID string, at time.Time) (*Equipment, error) {
	eq, err := s.require(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if eq.Status != StatusAvailable {
		return nil, &StateError{ID: eq.ID, Status: eq.Status, Op: ActionLoan}
	}

	eq.Status = StatusLoaned
	eq.HolderID = workerID
	eq.History = append(eq.History, LoanEvent{WorkerID: workerID, Action: ActionLoan, At: at})

	if err := s.store.SaveEquipment(ctx, *eq); err != nil {
		return nil, fmt.Errorf("save equipment: %w", err)
	}
	return eq, nil
}

// Return takes the equipment back. The equipment must be loaned out.
// workerID records who returned it, which need not match the holder.
func (s *Service) Return(ctx context.Context, equipmentID, workerID string, at time.Time) (*Equipment, error) {
	eq, err := s.require(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if eq.Status != StatusLoaned {
		return nil, &StateError{ID: eq.ID, Status: eq.Status, Op: ActionReturn}
	}

	eq.Status = StatusAvailable
	eq.HolderID = ""
	eq.History = append(eq.History, LoanEvent{WorkerID: workerID, Action: ActionReturn, At: at})

	if err := s.store.SaveEquipment(ctx, *eq); err != nil {
		return nil, fmt.Errorf("save equipment: %w", err)
	}
	return eq, nil
}

func (s *Service) require(ctx context.Context, id string) (*Equipment, error) {
	eq, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load equipment: %w", err)
	}
	if eq == nil {
		return nil, &NotFoundError{ID: id}
	}
	return eq, nil
}
