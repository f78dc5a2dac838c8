package service

import (
	"context"

	"github.com/wipeguard/wipeguard/internal/inventory"
)

type DeviceService struct {
	inventory inventory.Inventory
}

func NewDeviceService(inv inventory.Inventory) *DeviceService {
	return &DeviceService{inventory: inv}
}

func (s *DeviceService) ListTargets(ctx context.Context) ([]inventory.Device, error) {
	return s.inventory.ListTargets(ctx)
}
