package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// TransactionScope provides transactional access to role grants.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the identity repositories within a transaction.
type TransactionalRepositories interface {
	RoleGrants() identity.RoleGrantRepository
}

// RoleService handles role administration. Every mutation requires ADMIN.
type RoleService struct {
	txScope    TransactionScope
	accessGate identity.AccessGate
	logger     *zap.Logger
	now        func() time.Time
}

// NewRoleService creates a new role service
func NewRoleService(txScope TransactionScope, accessGate identity.AccessGate, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{
		txScope:    txScope,
		accessGate: accessGate,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock replaces the time source
func (s *RoleService) SetClock(now func() time.Time) {
	s.now = now
}

// BootstrapAdmin grants ADMIN to the deployment's configured admin account.
// It runs at start-up without a caller check and is idempotent.
func (s *RoleService) BootstrapAdmin(ctx context.Context, account uuid.UUID) error {
	if account == uuid.Nil {
		return nil
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.RoleGrants().Grant(ctx, identity.RoleGrant{
			Role:      identity.RoleAdmin,
			Account:   account,
			GrantedBy: account,
			GrantedAt: s.now(),
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin granted", zap.String("account", account.String()))
	return nil
}

// GrantRole gives account the role
func (s *RoleService) GrantRole(ctx context.Context, caller uuid.UUID, input RoleInput) (*RoleGrantDTO, error) {
	role, err := s.authorize(ctx, caller, input)
	if err != nil {
		return nil, err
	}

	grant := identity.RoleGrant{
		Role:      role,
		Account:   input.Account,
		GrantedBy: caller,
		GrantedAt: s.now(),
	}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.RoleGrants().Grant(ctx, grant)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role granted",
		zap.String("role", role.String()),
		zap.String("account", input.Account.String()),
		zap.String("granted_by", caller.String()),
	)
	dto := toRoleGrantDTO(grant)
	return &dto, nil
}

// RevokeRole removes the role from account
func (s *RoleService) RevokeRole(ctx context.Context, caller uuid.UUID, input RoleInput) error {
	role, err := s.authorize(ctx, caller, input)
	if err != nil {
		return err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.RoleGrants().Revoke(ctx, role, input.Account)
	})
	if err != nil {
		return err
	}

	s.logger.Info("role revoked",
		zap.String("role", role.String()),
		zap.String("account", input.Account.String()),
		zap.String("revoked_by", caller.String()),
	)
	return nil
}

// ListRoles returns the roles held by account
func (s *RoleService) ListRoles(ctx context.Context, account uuid.UUID) ([]RoleGrantDTO, error) {
	var grants []identity.RoleGrant
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		grants, err = repos.RoleGrants().ListByAccount(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]RoleGrantDTO, len(grants))
	for i, g := range grants {
		out[i] = toRoleGrantDTO(g)
	}
	return out, nil
}

func (s *RoleService) authorize(ctx context.Context, caller uuid.UUID, input RoleInput) (identity.Role, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleAdmin, caller); err != nil {
		return "", err
	}
	role, err := identity.ParseRole(input.Role)
	if err != nil {
		return "", err
	}
	if input.Account == uuid.Nil {
		return "", identity.ErrInvalidAccount
	}
	return role, nil
}
