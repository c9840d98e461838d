package shipment

import (
	"context"
	"time"

	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// completeArrival is shared by oracle confirmation and both override paths.
// It must run inside the caller's transaction: the status guard, the poll set
// and request cleanup, and the custody release commit together or not at all.
func completeArrival(ctx context.Context, repos TransactionalRepositories, sh *shipment.Shipment, mode shipment.ArrivalMode, now time.Time) error {
	if err := sh.MarkArrived(mode, now); err != nil {
		return err
	}
	if err := repos.ShipmentRepo().Update(ctx, sh); err != nil {
		return err
	}
	if err := repos.PollSet().Remove(ctx, sh.ID); err != nil {
		return err
	}
	if err := repos.RequestRepo().DeleteByShipment(ctx, sh.ID); err != nil {
		return err
	}
	if err := repos.Ledger().Transfer(ctx, ledger.ShipmentCustodyAccount, sh.Manufacturer, sh.MaterialID, sh.Quantity); err != nil {
		return err
	}
	return repos.Events().Record(ctx, sh.PullDomainEvents()...)
}
