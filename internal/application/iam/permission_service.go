package iam

import (
	"context"
	"strings"

	"github.com/AgbodesiImoagene/CE-IRELAND-ZONE-REPORTING-sub000/internal/application/core"
)

// PermissionService exposes the permission catalogue
type PermissionService struct {
	txScope core.TransactionScope
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(txScope core.TransactionScope) *PermissionService {
	return &PermissionService{txScope: txScope}
}

// List returns permissions ordered by code, optionally restricted to one module ("finance", "system", ...)
func (s *PermissionService) List(ctx context.Context, module string) ([]PermissionDTO, error) {
	prefix := strings.TrimSuffix(strings.TrimSpace(module), ".")
	if prefix != "" {
		prefix += "."
	}
	var out []PermissionDTO
	err := s.txScope.Execute(ctx, func(repos core.TransactionalRepositories) error {
		perms, err := repos.PermissionRepo().FindAll(ctx, prefix)
		if err != nil {
			return err
		}
		out = ToPermissionDTOs(perms)
		return nil
	})
	return out, err
}
