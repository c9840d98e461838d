package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
)

// uniqueAssetSequence names the id sequence of minted unique assets
const uniqueAssetSequence = "unique_asset"

type assetLedger struct{ tx *Tx }

func (l assetLedger) Mint(_ context.Context, to uuid.UUID, materialID uint64, amount int64) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}
	l.tx.state.balances[balanceKey{to, materialID}] += amount
	return nil
}

func (l assetLedger) Burn(_ context.Context, from uuid.UUID, materialID uint64, amount int64) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}
	key := balanceKey{from, materialID}
	if l.tx.state.balances[key] < amount {
		return ledger.ErrInsufficientBalance.WithMessage(fmt.Sprintf(
			"account %s holds %d of material %d, needs %d", from, l.tx.state.balances[key], materialID, amount))
	}
	l.tx.state.balances[key] -= amount
	return nil
}

func (l assetLedger) Transfer(ctx context.Context, from, to uuid.UUID, materialID uint64, amount int64) error {
	if err := l.Burn(ctx, from, materialID, amount); err != nil {
		return err
	}
	return l.Mint(ctx, to, materialID, amount)
}

func (l assetLedger) BalanceOf(_ context.Context, account uuid.UUID, materialID uint64) (int64, error) {
	return l.tx.state.balances[balanceKey{account, materialID}], nil
}

type paymentLedger struct{ tx *Tx }

func (l paymentLedger) Deposit(_ context.Context, to uuid.UUID, amount decimal.Decimal) error {
	if err := ledger.ValidatePayment(amount); err != nil {
		return err
	}
	l.tx.state.payments[to] = l.tx.state.payments[to].Add(amount)
	return nil
}

func (l paymentLedger) Transfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) error {
	if err := ledger.ValidatePayment(amount); err != nil {
		return err
	}
	balance := l.tx.state.payments[from]
	if balance.LessThan(amount) {
		return ledger.ErrInsufficientBalance.WithMessage(fmt.Sprintf(
			"account %s holds %s, needs %s", from, balance, amount))
	}
	l.tx.state.payments[from] = balance.Sub(amount)
	return l.Deposit(ctx, to, amount)
}

func (l paymentLedger) BalanceOf(_ context.Context, account uuid.UUID) (decimal.Decimal, error) {
	return l.tx.state.payments[account], nil
}

type uniqueAssets struct{ tx *Tx }

func (u uniqueAssets) MintUnique(ctx context.Context, to uuid.UUID, descriptor string) (uint64, error) {
	id, err := u.tx.Next(ctx, uniqueAssetSequence)
	if err != nil {
		return 0, err
	}
	u.tx.state.uniqueAssets[id] = ledger.UniqueAsset{ID: id, Owner: to, Descriptor: descriptor}
	return id, nil
}

func (u uniqueAssets) FindUnique(_ context.Context, id uint64) (*ledger.UniqueAsset, error) {
	a, ok := u.tx.state.uniqueAssets[id]
	if !ok {
		return nil, ledger.ErrAssetNotFound
	}
	return &a, nil
}

type roleGrants struct{ tx *Tx }

func (r roleGrants) HasRole(_ context.Context, role identity.Role, account uuid.UUID) (bool, error) {
	_, ok := r.tx.state.grants[grantKey{role, account}]
	return ok, nil
}

func (r roleGrants) Grant(_ context.Context, grant identity.RoleGrant) error {
	key := grantKey{grant.Role, grant.Account}
	if _, ok := r.tx.state.grants[key]; ok {
		return nil
	}
	r.tx.state.grants[key] = grant
	return nil
}

func (r roleGrants) Revoke(_ context.Context, role identity.Role, account uuid.UUID) error {
	delete(r.tx.state.grants, grantKey{role, account})
	return nil
}

func (r roleGrants) ListByAccount(_ context.Context, account uuid.UUID) ([]identity.RoleGrant, error) {
	out := make([]identity.RoleGrant, 0)
	for key, g := range r.tx.state.grants {
		if key.account == account {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}
