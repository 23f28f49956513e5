package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	containers map[int64]Container
}

func (f *fakeRepo) GetContainer(ctx context.Context, id int64) (Container, error) {
	c, ok := f.containers[id]
	if !ok {
		return Container{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) GetShipment(ctx context.Context, id int64) (Shipment, error) {
	return Shipment{}, ErrNotFound
}

func TestContainerShipment(t *testing.T) {
	svc := NewService(&fakeRepo{containers: map[int64]Container{
		7: {ID: 7, ShipmentID: 3, Code: "MSKU1234567"},
	}})
	ctx := context.Background()

	shipmentID, found, err := svc.ContainerShipment(ctx, 7)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 3, shipmentID)

	_, found, err = svc.ContainerShipment(ctx, 404)
	require.NoError(t, err)
	require.False(t, found)
}
