package equipment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/equipment"
	"github.com/warp/attendance-engine/store/memory"
)

func newTestService(t *testing.T) (*equipment.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return equipment.NewService(store), store
}

func addEquipment(t *testing.T, store *memory.Store, id string, status equipment.Status) {
	t.Helper()
	err := store.SaveEquipment(context.Background(), equipment.Equipment{
		ID:        id,
		Name:      "Drill " + id,
		Category:  "power-tools",
		Status:    status,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestLoan_AvailableEquipment(t *testing.T) {
	// GIVEN: Available equipment
	// WHEN: A worker loans it
	// THEN: Status flips to loaned, holder is set, history gains one entry

	svc, store := newTestService(t)
	addEquipment(t, store, "EQ-1023", equipment.StatusAvailable)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	eq, err := svc.Loan(context.Background(), "EQ-1023", "wrk-1", at)
	require.NoError(t, err)

	assert.Equal(t, equipment.StatusLoaned, eq.Status)
	assert.Equal(t, "wrk-1", eq.HolderID)
	require.Len(t, eq.History, 1)
	assert.Equal(t, equipment.ActionLoan, eq.History[0].Action)
	assert.Equal(t, "wrk-1", eq.History[0].WorkerID)
	assert.True(t, eq.History[0].At.Equal(at))

	// The transition persisted, not just the returned copy.
	stored, err := store.GetEquipment(context.Background(), "EQ-1023")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, equipment.StatusLoaned, stored.Status)
}

func TestLoan_AlreadyLoaned_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	addEquipment(t, store, "EQ-1023", equipment.StatusLoaned)

	_, err := svc.Loan(context.Background(), "EQ-1023", "wrk-2", time.Now())

	assert.ErrorIs(t, err, equipment.ErrNotAvailable)
	var stateErr *equipment.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, equipment.StatusLoaned, stateErr.Status)
}

func TestLoan_UnderMaintenance_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	addEquipment(t, store, "EQ-1023", equipment.StatusMaintenance)

	_, err := svc.Loan(context.Background(), "EQ-1023", "wrk-1", time.Now())
	assert.ErrorIs(t, err, equipment.ErrNotAvailable)
}

func TestReturn_LoanedEquipment(t *testing.T) {
	// GIVEN: Equipment loaned to wrk-1
	// WHEN: wrk-2 returns it (returner need not match the holder)
	// THEN: Status flips back to available, holder clears, history appends

	svc, store := newTestService(t)
	addEquipment(t, store, "EQ-1023", equipment.StatusAvailable)
	ctx := context.Background()

	loanAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := svc.Loan(ctx, "EQ-1023", "wrk-1", loanAt)
	require.NoError(t, err)

	eq, err := svc.Return(ctx, "EQ-1023", "wrk-2", loanAt.Add(6*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, equipment.StatusAvailable, eq.Status)
	assert.Empty(t, eq.HolderID)
	require.Len(t, eq.History, 2)
	assert.Equal(t, equipment.ActionReturn, eq.History[1].Action)
	assert.Equal(t, "wrk-2", eq.History[1].WorkerID)
}

func TestReturn_NotLoaned_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	addEquipment(t, store, "EQ-1023", equipment.StatusAvailable)

	_, err := svc.Return(context.Background(), "EQ-1023", "wrk-1", time.Now())
	assert.ErrorIs(t, err, equipment.ErrNotLoaned)
}

func TestLoanReturn_UnknownEquipment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Loan(ctx, "EQ-404", "wrk-1", time.Now())
	assert.ErrorIs(t, err, equipment.ErrEquipmentNotFound)

	_, err = svc.Return(ctx, "EQ-404", "wrk-1", time.Now())
	assert.ErrorIs(t, err, equipment.ErrEquipmentNotFound)

	var nf *equipment.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "EQ-404", nf.ID)
}

func TestHistory_AppendOnlyAcrossCycles(t *testing.T) {
	// Two full loan/return cycles leave four ordered history entries.
	svc, store := newTestService(t)
	addEquipment(t, store, "EQ-1023", equipment.StatusAvailable)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		at := base.AddDate(0, 0, i)
		_, err := svc.Loan(ctx, "EQ-1023", "wrk-1", at)
		require.NoError(t, err)
		_, err = svc.Return(ctx, "EQ-1023", "wrk-1", at.Add(8*time.Hour))
		require.NoError(t, err)
	}

	eq, err := store.GetEquipment(ctx, "EQ-1023")
	require.NoError(t, err)
	require.NotNil(t, eq)
	require.Len(t, eq.History, 4)
	want := []equipment.LoanAction{
		equipment.ActionLoan, equipment.ActionReturn,
		equipment.ActionLoan, equipment.ActionReturn,
	}
	for i, action := range want {
		assert.Equal(t, action, eq.History[i].Action, "entry %d", i)
	}
}

func TestStateError_Unwrap(t *testing.T) {
	loanErr := &equipment.StateError{ID: "EQ-1", Status: equipment.StatusLoaned, Op: equipment.ActionLoan}
	returnErr := &equipment.StateError{ID: "EQ-1", Status: equipment.StatusAvailable, Op: equipment.ActionReturn}

	assert.True(t, errors.Is(loanErr, equipment.ErrNotAvailable))
	assert.True(t, errors.Is(returnErr, equipment.ErrNotLoaned))
}
