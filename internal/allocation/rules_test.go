package allocation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lodestar-freight/lodestar/internal/shared"
)

func TestCanAllocate(t *testing.T) {
	require.NoError(t, CanAllocate(6, 10, 0))
	require.NoError(t, CanAllocate(4, 10, 6))

	require.ErrorIs(t, CanAllocate(0, 10, 0), ErrInvalidQuantity)
	require.ErrorIs(t, CanAllocate(-3, 10, 0), ErrInvalidQuantity)
	require.ErrorIs(t, CanAllocate(5, 10, 6), ErrInsufficientInventory)
	require.ErrorIs(t, CanAllocate(11, 10, 0), ErrInsufficientInventory)
}

func TestCanAllocateDetails(t *testing.T) {
	err := CanAllocate(5, 10, 6)
	var domainErr *shared.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, CodeInsufficientInventory, domainErr.Code)
	require.EqualValues(t, 4, domainErr.Details["available_qty"])
}

func TestCanPick(t *testing.T) {
	a := Allocation{Status: StatusAllocated, AllocatedQty: 10, PickedQty: 3}

	require.NoError(t, CanPick(a, 10))
	require.NoError(t, CanPick(a, 3)) // same value is a no-op, not a regression

	require.ErrorIs(t, CanPick(a, 11), ErrPickExceedsAllocated)
	require.ErrorIs(t, CanPick(a, 2), ErrQuantityMustBeMonotonic)

	a.Status = StatusLoaded
	require.ErrorIs(t, CanPick(a, 5), ErrInvalidState)
	a.Status = StatusShipped
	require.ErrorIs(t, CanPick(a, 5), ErrInvalidState)
	a.Status = StatusCancelled
	require.ErrorIs(t, CanPick(a, 5), ErrInvalidState)
}

func TestNextStatusAfterPick(t *testing.T) {
	require.Equal(t, StatusPicked, NextStatusAfterPick(StatusAllocated, 1))
	require.Equal(t, StatusAllocated, NextStatusAfterPick(StatusAllocated, 0))
	require.Equal(t, StatusPicked, NextStatusAfterPick(StatusPicked, 5))
}

func TestCanLoad(t *testing.T) {
	container := int64(7)
	a := Allocation{Status: StatusPicked, AllocatedQty: 10, PickedQty: 5}

	require.ErrorIs(t, CanLoad(a, 1), ErrContainerRequired)

	a.ContainerID = &container
	require.ErrorIs(t, CanLoad(a, 6), ErrLoadExceedsPicked)
	require.NoError(t, CanLoad(a, 5))

	a.PickedQty = 12
	a.AllocatedQty = 10
	require.ErrorIs(t, CanLoad(a, 11), ErrLoadExceedsAllocated)

	a.PickedQty = 5
	a.LoadedQty = 4
	require.ErrorIs(t, CanLoad(a, 3), ErrQuantityMustBeMonotonic)

	a.Status = StatusAllocated
	require.ErrorIs(t, CanLoad(a, 1), ErrInvalidState)
}

func TestNextStatusAfterLoad(t *testing.T) {
	require.Equal(t, StatusLoaded, NextStatusAfterLoad(StatusPicked, 1))
	require.Equal(t, StatusPicked, NextStatusAfterLoad(StatusPicked, 0))
}

func TestCanShip(t *testing.T) {
	a := Allocation{Status: StatusLoaded, AllocatedQty: 10, PickedQty: 5, LoadedQty: 5}

	require.ErrorIs(t, CanShip(a, 6), ErrShipExceedsLoaded)
	require.ErrorIs(t, CanShip(a, 0), ErrInvalidQuantity)
	// a negative quantity trips the monotonicity guard before the sign check
	require.ErrorIs(t, CanShip(a, -1), ErrQuantityMustBeMonotonic)
	require.NoError(t, CanShip(a, 5))

	a.Status = StatusPicked
	require.ErrorIs(t, CanShip(a, 5), ErrInvalidState)
	a.Status = StatusShipped
	require.ErrorIs(t, CanShip(a, 5), ErrInvalidState)
}

func TestCanCancel(t *testing.T) {
	for _, status := range []Status{StatusAllocated, StatusPicked, StatusLoaded} {
		require.NoError(t, CanCancel(Allocation{Status: status}))
	}
	require.ErrorIs(t, CanCancel(Allocation{Status: StatusShipped}), ErrInvalidState)
	require.ErrorIs(t, CanCancel(Allocation{Status: StatusCancelled}), ErrInvalidState)

	// unreachable through the service, but the guard must hold on its own
	require.ErrorIs(t, CanCancel(Allocation{Status: StatusLoaded, ShippedQty: 2}), ErrAlreadyShipped)
}

func TestCanSplit(t *testing.T) {
	a := Allocation{Status: StatusAllocated, AllocatedQty: 10}

	require.NoError(t, CanSplit(a, 4))
	require.ErrorIs(t, CanSplit(a, 10), ErrSplitExceedsAllocated)
	require.ErrorIs(t, CanSplit(a, 12), ErrSplitExceedsAllocated)
	require.ErrorIs(t, CanSplit(a, 0), ErrInvalidQuantity)

	a.PickedQty = 1
	require.ErrorIs(t, CanSplit(a, 4), ErrCannotSplitAfterProgress)

	a.PickedQty = 0
	a.Status = StatusPicked
	require.ErrorIs(t, CanSplit(a, 4), ErrInvalidState)
}
