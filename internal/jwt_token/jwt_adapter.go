package jwttoken

import (
	"idswyft/internal/platform/middleware"
	id "idswyft/pkg/domain"
)

// ServiceAdapter bridges the token service to the auth middleware without
// the middleware importing JWT internals.
type ServiceAdapter struct {
	service *Service
}

func NewServiceAdapter(service *Service) *ServiceAdapter {
	return &ServiceAdapter{service: service}
}

func (a *ServiceAdapter) ValidateToken(tokenString string) (*middleware.TenantClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil {
		return nil, err
	}
	return &middleware.TenantClaims{
		TenantID: tenantID,
		Sandbox:  claims.Sandbox,
	}, nil
}
