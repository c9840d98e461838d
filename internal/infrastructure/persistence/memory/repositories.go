package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

type shipmentRepo struct{ tx *Tx }

func (r shipmentRepo) Create(_ context.Context, s *shipment.Shipment) error {
	if _, ok := r.tx.state.shipments[s.ID]; ok {
		return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("shipment %d already exists", s.ID))
	}
	r.tx.state.shipments[s.ID] = cloneShipment(*s)
	return nil
}

func (r shipmentRepo) FindByID(_ context.Context, id uint64) (*shipment.Shipment, error) {
	s, ok := r.tx.state.shipments[id]
	if !ok {
		return nil, shipment.ErrShipmentNotFound
	}
	c := cloneShipment(s)
	return &c, nil
}

func (r shipmentRepo) Update(_ context.Context, s *shipment.Shipment) error {
	stored, ok := r.tx.state.shipments[s.ID]
	if !ok {
		return shipment.ErrShipmentNotFound
	}
	if stored.Version != s.Version {
		return shared.ErrConcurrencyConflict
	}
	s.IncrementVersion()
	r.tx.state.shipments[s.ID] = cloneShipment(*s)
	return nil
}

func (r shipmentRepo) List(_ context.Context, filter shipment.Filter) ([]*shipment.Shipment, int64, error) {
	ids := make([]uint64, 0, len(r.tx.state.shipments))
	for id, s := range r.tx.state.shipments {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.Manufacturer != nil && s.Manufacturer != *filter.Manufacturer {
			continue
		}
		if filter.Supplier != nil && s.Supplier != *filter.Supplier {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(len(ids))
	start, end := pageBounds(len(ids), filter.Page, filter.PageSize)
	out := make([]*shipment.Shipment, 0, end-start)
	for _, id := range ids[start:end] {
		c := cloneShipment(r.tx.state.shipments[id])
		out = append(out, &c)
	}
	return out, total, nil
}

func (r shipmentRepo) GetShipmentStatus(_ context.Context, id uint64) (shipment.Status, error) {
	s, ok := r.tx.state.shipments[id]
	if !ok {
		return "", shipment.ErrShipmentNotFound
	}
	return s.Status, nil
}

func pageBounds(n, page, pageSize int) (int, int) {
	if pageSize <= 0 {
		return 0, n
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > n {
		start = n
	}
	end := start + pageSize
	if end > n {
		end = n
	}
	return start, end
}

type pollSet struct{ tx *Tx }

func (p pollSet) Add(_ context.Context, id uint64) error {
	p.tx.state.pollSet[id] = struct{}{}
	return nil
}

func (p pollSet) Remove(_ context.Context, id uint64) error {
	delete(p.tx.state.pollSet, id)
	return nil
}

func (p pollSet) Contains(_ context.Context, id uint64) (bool, error) {
	_, ok := p.tx.state.pollSet[id]
	return ok, nil
}

func (p pollSet) List(_ context.Context) ([]uint64, error) {
	ids := make([]uint64, 0, len(p.tx.state.pollSet))
	for id := range p.tx.state.pollSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type requestRepo struct{ tx *Tx }

func (r requestRepo) Create(_ context.Context, req *shipment.VerificationRequest) error {
	if _, ok := r.tx.state.requests[req.RequestID]; ok {
		return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("verification request %s already exists", req.RequestID))
	}
	r.tx.state.requests[req.RequestID] = *req
	return nil
}

func (r requestRepo) Take(_ context.Context, requestID string) (*shipment.VerificationRequest, error) {
	req, ok := r.tx.state.requests[requestID]
	if !ok {
		return nil, shipment.ErrRequestNotFound
	}
	delete(r.tx.state.requests, requestID)
	return &req, nil
}

func (r requestRepo) ExistsForShipment(_ context.Context, shipmentID uint64) (bool, error) {
	for _, req := range r.tx.state.requests {
		if req.ShipmentID == shipmentID {
			return true, nil
		}
	}
	return false, nil
}

func (r requestRepo) DeleteByShipment(_ context.Context, shipmentID uint64) error {
	for id, req := range r.tx.state.requests {
		if req.ShipmentID == shipmentID {
			delete(r.tx.state.requests, id)
		}
	}
	return nil
}

type productRepo struct{ tx *Tx }

func (r productRepo) Create(_ context.Context, p *product.Product) error {
	if _, ok := r.tx.state.products[p.ID]; ok {
		return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("product %d already exists", p.ID))
	}
	r.tx.state.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r productRepo) FindByID(_ context.Context, id uint64) (*product.Product, error) {
	p, ok := r.tx.state.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	c := cloneProduct(p)
	return &c, nil
}

func (r productRepo) ListByShipment(_ context.Context, shipmentID uint64) ([]*product.Product, error) {
	out := make([]*product.Product, 0)
	for _, p := range r.tx.state.products {
		if p.ShipmentID == shipmentID {
			c := cloneProduct(p)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type consumptionRepo struct{ tx *Tx }

func (r consumptionRepo) Create(_ context.Context, c *product.Consumption) error {
	if _, ok := r.tx.state.consumptions[c.ShipmentID]; ok {
		return product.ErrShipmentAlreadyConsumed
	}
	r.tx.state.consumptions[c.ShipmentID] = *c
	return nil
}

func (r consumptionRepo) Exists(_ context.Context, shipmentID uint64) (bool, error) {
	_, ok := r.tx.state.consumptions[shipmentID]
	return ok, nil
}

type escrowRepo struct{ tx *Tx }

func (r escrowRepo) Create(_ context.Context, e *escrow.Escrow) error {
	if _, ok := r.tx.state.escrows[e.ShipmentID]; ok {
		return escrow.ErrEscrowAlreadyFunded
	}
	r.tx.state.escrows[e.ShipmentID] = cloneEscrow(*e)
	return nil
}

func (r escrowRepo) FindByShipment(_ context.Context, shipmentID uint64) (*escrow.Escrow, error) {
	e, ok := r.tx.state.escrows[shipmentID]
	if !ok {
		return nil, escrow.ErrEscrowNotFound
	}
	c := cloneEscrow(e)
	return &c, nil
}

func (r escrowRepo) Update(_ context.Context, e *escrow.Escrow) error {
	stored, ok := r.tx.state.escrows[e.ShipmentID]
	if !ok {
		return escrow.ErrEscrowNotFound
	}
	if stored.Version != e.Version {
		return shared.ErrConcurrencyConflict
	}
	e.IncrementVersion()
	r.tx.state.escrows[e.ShipmentID] = cloneEscrow(*e)
	return nil
}
