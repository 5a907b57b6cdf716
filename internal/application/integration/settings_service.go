package integration

import (
	"context"
	"strings"

	"github.com/alexthecreator0001/woowms-sub001/internal/domain/integration"
	"github.com/alexthecreator0001/woowms-sub001/internal/domain/shared"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// SettingsService reads and writes the caller tenant's sync settings
type SettingsService struct {
	settings integration.TenantSettingsRepository
}

// NewSettingsService creates a SettingsService
func NewSettingsService(settings integration.TenantSettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// GetSettings returns the tenant's settings, or defaults
func (s *SettingsService) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ToSettingsResponse(settings), nil
}

// UpdateSettings applies the non-nil fields of req
func (s *SettingsService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*SettingsResponse, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if req.StatusOverrides != nil {
		settings.StatusOverrides = req.StatusOverrides
	}
	if req.FallbackStatus != nil {
		settings.FallbackStatus = strings.TrimSpace(*req.FallbackStatus)
	}
	if req.LowStockThreshold != nil {
		settings.LowStockThreshold = *req.LowStockThreshold
	}
	if req.PushStockEnabled != nil {
		settings.PushStockEnabled = *req.PushStockEnabled
	}
	if req.DefaultCurrency != nil {
		code, ok := isoCurrency(*req.DefaultCurrency)
		if !ok {
			return nil, shared.NewDomainError(shared.ErrInvalidCurrency.Code, "Default currency must be an ISO 4217 code")
		}
		settings.DefaultCurrency = code
	}

	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	return ToSettingsResponse(settings), nil
}
