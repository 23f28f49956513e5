package allocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items       map[int64]InventoryItem
	allocations map[int64]Allocation
	movements   []Movement
	nextID      int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:       make(map[int64]InventoryItem),
		allocations: make(map[int64]Allocation),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetAllocation(ctx context.Context, id int64) (Allocation, error) {
	a, ok := r.allocations[id]
	if !ok {
		return Allocation{}, ErrAllocationNotFound
	}
	return a, nil
}

func (r *memoryRepo) ListByShipment(ctx context.Context, shipmentID int64) ([]Allocation, error) {
	var out []Allocation
	for _, a := range r.allocations {
		if a.ShipmentID == shipmentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, itemID int64) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.InventoryItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetAllocationForUpdate(ctx context.Context, id int64) (Allocation, error) {
	return tx.repo.GetAllocation(ctx, id)
}

func (tx *memoryTx) GetInventoryItemForUpdate(ctx context.Context, id int64) (InventoryItem, error) {
	item, ok := tx.repo.items[id]
	if !ok {
		return InventoryItem{}, ErrInventoryItemNotFound
	}
	return item, nil
}

func (tx *memoryTx) SumReservedQty(ctx context.Context, itemID int64) (int64, error) {
	var reserved int64
	for _, a := range tx.repo.allocations {
		if a.InventoryItemID == itemID && a.Status.Reserves() {
			reserved += a.AllocatedQty
		}
	}
	return reserved, nil
}

func (tx *memoryTx) InsertAllocation(ctx context.Context, a Allocation) (Allocation, error) {
	tx.repo.nextID++
	a.ID = tx.repo.nextID
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	tx.repo.allocations[a.ID] = a
	return a, nil
}

func (tx *memoryTx) UpdateAllocation(ctx context.Context, a Allocation) error {
	if _, ok := tx.repo.allocations[a.ID]; !ok {
		return ErrAllocationNotFound
	}
	tx.repo.allocations[a.ID] = a
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	m.ID = int64(len(tx.repo.movements) + 1)
	m.CreatedAt = time.Now().UTC()
	tx.repo.movements = append(tx.repo.movements, m)
	return m.ID, nil
}

func (tx *memoryTx) DecrementItemCurrentQty(ctx context.Context, itemID, by int64) error {
	item, ok := tx.repo.items[itemID]
	if !ok {
		return ErrInventoryItemNotFound
	}
	item.CurrentQty -= by
	tx.repo.items[itemID] = item
	return nil
}

type fakeMasterData struct {
	containers map[int64]int64 // container id -> shipment id
}

func (f *fakeMasterData) ContainerShipment(ctx context.Context, containerID int64) (int64, bool, error) {
	shipmentID, ok := f.containers[containerID]
	return shipmentID, ok, nil
}

type recordedEvent struct {
	evt AllocationShippedEvent
}

type captureIntegration struct {
	events []recordedEvent
}

func (c *captureIntegration) HandleAllocationShipped(ctx context.Context, evt AllocationShippedEvent) error {
	c.events = append(c.events, recordedEvent{evt: evt})
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *fakeMasterData, *captureIntegration) {
	md := &fakeMasterData{containers: map[int64]int64{}}
	integration := &captureIntegration{}
	return NewService(repo, md, nil, integration), md, integration
}

func ptr(v int64) *int64 { return &v }

func TestCreateReservationAccounting(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 10, CurrentQty: 10}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 6})
	require.NoError(t, err)
	require.Equal(t, StatusAllocated, first.Status)
	require.EqualValues(t, 6, first.AllocatedQty)

	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 5})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 2, AllocatedQty: 4})
	require.NoError(t, err)

	// creating a reservation never touches physical stock
	require.EqualValues(t, 10, repo.items[1].CurrentQty)
}

func TestCreateReleasedByCancel(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 10, CurrentQty: 10}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 8})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 3})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	_, err = svc.Cancel(ctx, a.ID)
	require.NoError(t, err)

	// cancelled allocations no longer reserve stock
	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 3})
	require.NoError(t, err)
}

func TestCreateContainerChecks(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 10, CurrentQty: 10}
	svc, md, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(9), AllocatedQty: 2})
	require.ErrorIs(t, err, ErrContainerNotFound)

	// quantity problems are reported before container problems
	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(9), AllocatedQty: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(9), AllocatedQty: 99})
	require.ErrorIs(t, err, ErrInsufficientInventory)

	md.containers[9] = 2
	_, err = svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(9), AllocatedQty: 2})
	require.ErrorIs(t, err, ErrContainerShipmentMismatch)

	md.containers[9] = 1
	created, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(9), AllocatedQty: 2})
	require.NoError(t, err)
	require.EqualValues(t, 9, *created.ContainerID)
}

func TestPickProgression(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 20, CurrentQty: 20}
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 10})
	require.NoError(t, err)

	a, err = svc.Pick(ctx, a.ID, 3)
	require.NoError(t, err)
	require.Equal(t, StatusPicked, a.Status)

	_, err = svc.Pick(ctx, a.ID, 11)
	require.ErrorIs(t, err, ErrPickExceedsAllocated)

	_, err = svc.Pick(ctx, a.ID, 2)
	require.ErrorIs(t, err, ErrQuantityMustBeMonotonic)

	a, err = svc.Pick(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Equal(t, StatusPicked, a.Status)
	require.EqualValues(t, 10, a.PickedQty)
}

func TestLoadRequiresContainer(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 20, CurrentQty: 20}
	svc, md, _ := newTestService(repo)
	md.containers[4] = 1
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 10})
	require.NoError(t, err)
	a, err = svc.Pick(ctx, a.ID, 5)
	require.NoError(t, err)

	_, err = svc.Load(ctx, a.ID, 1, nil)
	require.ErrorIs(t, err, ErrContainerRequired)

	// container can be adopted at load time
	_, err = svc.Load(ctx, a.ID, 6, ptr(4))
	require.ErrorIs(t, err, ErrLoadExceedsPicked)

	a, err = svc.Load(ctx, a.ID, 5, ptr(4))
	require.NoError(t, err)
	require.Equal(t, StatusLoaded, a.Status)
	require.EqualValues(t, 4, *a.ContainerID)
}

func TestShipConsumesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 7, InitialQty: 20, CurrentQty: 20}
	svc, md, integration := newTestService(repo)
	md.containers[4] = 1
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(4), AllocatedQty: 10})
	require.NoError(t, err)
	a, err = svc.Pick(ctx, a.ID, 5)
	require.NoError(t, err)
	a, err = svc.Load(ctx, a.ID, 5, nil)
	require.NoError(t, err)

	_, err = svc.Ship(ctx, a.ID, 6)
	require.ErrorIs(t, err, ErrShipExceedsLoaded)

	a, err = svc.Ship(ctx, a.ID, 5)
	require.NoError(t, err)
	require.Equal(t, StatusShipped, a.Status)
	require.EqualValues(t, 5, a.ShippedQty)

	require.EqualValues(t, 15, repo.items[1].CurrentQty)

	movements, err := svc.ListMovements(ctx, 1)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, MovementRefShip, movements[0].RefType)
	require.EqualValues(t, a.ID, movements[0].RefID)
	require.EqualValues(t, -5, movements[0].QtyDelta)

	require.Len(t, integration.events, 1)
	require.EqualValues(t, 7, integration.events[0].evt.ReceiptID)
	require.EqualValues(t, 5, integration.events[0].evt.ShippedQty)
}

type failingIntegration struct {
	err error
}

func (f *failingIntegration) HandleAllocationShipped(ctx context.Context, evt AllocationShippedEvent) error {
	return f.err
}

func TestShipIntegrationFailureIsPostCommit(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 20, CurrentQty: 20}
	md := &fakeMasterData{containers: map[int64]int64{4: 1}}
	enqueueErr := errors.New("queue unavailable")
	svc := NewService(repo, md, nil, &failingIntegration{err: enqueueErr})
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(4), AllocatedQty: 5})
	require.NoError(t, err)
	_, err = svc.Pick(ctx, a.ID, 5)
	require.NoError(t, err)
	_, err = svc.Load(ctx, a.ID, 5, nil)
	require.NoError(t, err)

	updated, err := svc.Ship(ctx, a.ID, 5)
	require.Error(t, err)
	require.ErrorIs(t, err, enqueueErr)

	var postCommit *PostCommitError
	require.ErrorAs(t, err, &postCommit)

	// the ship itself is durable despite the event failure
	require.Equal(t, StatusShipped, updated.Status)
	require.Equal(t, StatusShipped, repo.allocations[a.ID].Status)
	require.EqualValues(t, 15, repo.items[1].CurrentQty)
}

func TestShipInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 20, CurrentQty: 20}
	svc, md, _ := newTestService(repo)
	md.containers[4] = 1
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(4), AllocatedQty: 10})
	require.NoError(t, err)
	a, err = svc.Pick(ctx, a.ID, 10)
	require.NoError(t, err)
	a, err = svc.Load(ctx, a.ID, 10, nil)
	require.NoError(t, err)

	// another allocation drained the item in the meantime
	item := repo.items[1]
	item.CurrentQty = 4
	repo.items[1] = item

	_, err = svc.Ship(ctx, a.ID, 10)
	require.ErrorIs(t, err, ErrInsufficientInventory)
	require.EqualValues(t, 4, repo.items[1].CurrentQty)
}

func TestTerminalStability(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 20, CurrentQty: 20}
	svc, md, _ := newTestService(repo)
	md.containers[4] = 1
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, ContainerID: ptr(4), AllocatedQty: 5})
	require.NoError(t, err)
	_, err = svc.Pick(ctx, a.ID, 5)
	require.NoError(t, err)
	_, err = svc.Load(ctx, a.ID, 5, nil)
	require.NoError(t, err)
	_, err = svc.Ship(ctx, a.ID, 5)
	require.NoError(t, err)

	_, err = svc.Pick(ctx, a.ID, 5)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Load(ctx, a.ID, 5, nil)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Ship(ctx, a.ID, 5)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Cancel(ctx, a.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	_, _, err = svc.Split(ctx, a.ID, 2, nil)
	require.ErrorIs(t, err, ErrInvalidState)

	cancelled, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 3})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = svc.Pick(ctx, cancelled.ID, 1)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Cancel(ctx, cancelled.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSplit(t *testing.T) {
	repo := newMemoryRepo()
	repo.items[1] = InventoryItem{ID: 1, ReceiptID: 1, InitialQty: 20, CurrentQty: 20}
	svc, md, _ := newTestService(repo)
	md.containers[4] = 1
	md.containers[5] = 2
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{InventoryItemID: 1, ShipmentID: 1, AllocatedQty: 10})
	require.NoError(t, err)

	_, _, err = svc.Split(ctx, a.ID, 10, nil)
	require.ErrorIs(t, err, ErrSplitExceedsAllocated)

	original, created, err := svc.Split(ctx, a.ID, 4, nil)
	require.NoError(t, err)
	require.EqualValues(t, 6, original.AllocatedQty)
	require.EqualValues(t, 4, created.AllocatedQty)
	require.Equal(t, StatusAllocated, created.Status)
	require.EqualValues(t, original.InventoryItemID, created.InventoryItemID)
	require.EqualValues(t, original.ShipmentID, created.ShipmentID)
	require.Zero(t, created.PickedQty)
	require.Zero(t, created.LoadedQty)
	require.Zero(t, created.ShippedQty)

	// split keeps total reservation constant
	reserved, err := (&memoryTx{repo: repo}).SumReservedQty(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 10, reserved)

	// container on the new half must belong to the same shipment
	_, _, err = svc.Split(ctx, original.ID, 2, ptr(5))
	require.ErrorIs(t, err, ErrContainerShipmentMismatch)

	_, picked, err := svc.Split(ctx, original.ID, 2, ptr(4))
	require.NoError(t, err)
	require.EqualValues(t, 4, *picked.ContainerID)

	// any progress blocks further splits, even if the status were still
	// ALLOCATED in a stale snapshot
	stale := repo.allocations[created.ID]
	stale.PickedQty = 1
	repo.allocations[created.ID] = stale
	_, _, err = svc.Split(ctx, created.ID, 1, nil)
	require.ErrorIs(t, err, ErrCannotSplitAfterProgress)

	_, err = svc.Pick(ctx, created.ID, 2)
	require.NoError(t, err)
	_, _, err = svc.Split(ctx, created.ID, 1, nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSplitUnknownAllocation(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	_, _, err := svc.Split(context.Background(), 42, 1, nil)
	require.ErrorIs(t, err, ErrAllocationNotFound)
}
