package masterdata

import (
	"context"
	"errors"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetContainer(ctx context.Context, id int64) (Container, error)
	GetShipment(ctx context.Context, id int64) (Shipment, error)
}

// Service answers referential questions about master data.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ContainerShipment returns the shipment a container belongs to. It
// implements the allocation engine's master data port.
func (s *Service) ContainerShipment(ctx context.Context, containerID int64) (int64, bool, error) {
	container, err := s.repo.GetContainer(ctx, containerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return container.ShipmentID, true, nil
}
