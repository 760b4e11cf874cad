package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrOrderInUse is returned when deleting an order that prior authorization
// requests still reference.
var ErrOrderInUse = errors.New("order is referenced by prior authorization requests")

type Service struct {
	orders Repository
}

func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

var validModalities = map[string]bool{
	"mri":        true,
	"ct":         true,
	"pet":        true,
	"xray":       true,
	"ultrasound": true,
}

func (s *Service) validate(o *Order) error {
	if o.PatientName == "" {
		return fmt.Errorf("patient_name is required")
	}
	if o.PatientMRN == "" {
		return fmt.Errorf("patient_mrn is required")
	}
	if !validModalities[o.Modality] {
		return fmt.Errorf("invalid modality: %s", o.Modality)
	}
	if o.CPTCode == "" {
		return fmt.Errorf("cpt_code is required")
	}
	return nil
}

func (s *Service) CreateOrder(ctx context.Context, o *Order) error {
	if err := s.validate(o); err != nil {
		return err
	}
	return s.orders.Create(ctx, o)
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) UpdateOrder(ctx context.Context, o *Order) error {
	if err := s.validate(o); err != nil {
		return err
	}
	return s.orders.Update(ctx, o)
}

// DeleteOrder removes an order unless PA requests still reference it.
func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	count, err := s.orders.CountPaRequests(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d request(s)", ErrOrderInUse, count)
	}
	return s.orders.Delete(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return s.orders.List(ctx, limit, offset)
}
