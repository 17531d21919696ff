package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/vendor-attendance/internal/application/port"
	"github.com/garyjia/vendor-attendance/internal/domain/apperr"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
	"github.com/garyjia/vendor-attendance/pkg/utils"
)

// VendorService manages the vendor and manager directory
type VendorService interface {
	CreateManager(ctx context.Context, m *entity.Manager) (*entity.Manager, error)
	ListManagers(ctx context.Context) ([]*entity.Manager, error)
	CreateVendor(ctx context.Context, v *entity.Vendor) (*entity.Vendor, error)
	GetVendor(ctx context.Context, vendorID string) (*entity.Vendor, error)
	// AssignManager moves a vendor to another manager's team; empty managerID clears it
	AssignManager(ctx context.Context, vendorID, managerID string) (*entity.Vendor, error)
	Deactivate(ctx context.Context, vendorID string) error
	ListTeam(ctx context.Context, managerID string) ([]*entity.Vendor, error)
}

type vendorServiceImpl struct {
	vendors  port.VendorRepository
	managers port.ManagerRepository
	logger   Logger
}

// NewVendorService creates a new VendorService
func NewVendorService(vendors port.VendorRepository, managers port.ManagerRepository, logger Logger) VendorService {
	return &vendorServiceImpl{vendors: vendors, managers: managers, logger: logger}
}

func (s *vendorServiceImpl) CreateManager(ctx context.Context, m *entity.Manager) (*entity.Manager, error) {
	m.ManagerID = strings.TrimSpace(m.ManagerID)
	m.Name = utils.SanitizeString(m.Name)
	if err := utils.ValidateIdentifier("manager", m.ManagerID); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if m.Name == "" {
		return nil, apperr.Validation("manager name is required")
	}
	if m.Email != "" {
		if err := utils.ValidateEmail(m.Email); err != nil {
			return nil, apperr.Validation("%v", err)
		}
	}
	m.Active = true

	if err := s.managers.Create(ctx, m); err != nil {
		logRejection(s.logger, "Failed to create manager", err, "manager_id", m.ManagerID)
		return nil, err
	}
	s.logger.Info("Manager created", "manager_id", m.ManagerID)
	return m, nil
}

func (s *vendorServiceImpl) CreateVendor(ctx context.Context, v *entity.Vendor) (*entity.Vendor, error) {
	v.VendorID = strings.TrimSpace(v.VendorID)
	v.Name = utils.SanitizeString(v.Name)
	if err := utils.ValidateIdentifier("vendor", v.VendorID); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if v.Name == "" {
		return nil, apperr.Validation("vendor name is required")
	}
	if v.ManagerID != nil {
		if err := s.requireManager(ctx, *v.ManagerID); err != nil {
			return nil, err
		}
	}
	v.Active = true

	if err := s.vendors.Create(ctx, v); err != nil {
		logRejection(s.logger, "Failed to create vendor", err, "vendor_id", v.VendorID)
		return nil, err
	}
	s.logger.Info("Vendor created", "vendor_id", v.VendorID)
	return v, nil
}

func (s *vendorServiceImpl) GetVendor(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	v, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	if v == nil {
		return nil, apperr.NotFound("vendor", vendorID)
	}
	return v, nil
}

func (s *vendorServiceImpl) AssignManager(ctx context.Context, vendorID, managerID string) (*entity.Vendor, error) {
	v, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if managerID == "" {
		v.ManagerID = nil
	} else {
		if err := s.requireManager(ctx, managerID); err != nil {
			return nil, err
		}
		v.ManagerID = &managerID
	}

	if err := s.vendors.Update(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("Vendor manager assigned", "vendor_id", vendorID, "manager_id", managerID)
	return v, nil
}

func (s *vendorServiceImpl) Deactivate(ctx context.Context, vendorID string) error {
	if err := s.vendors.SetActive(ctx, vendorID, false); err != nil {
		logRejection(s.logger, "Failed to deactivate vendor", err, "vendor_id", vendorID)
		return err
	}
	s.logger.Info("Vendor deactivated", "vendor_id", vendorID)
	return nil
}

func (s *vendorServiceImpl) ListManagers(ctx context.Context) ([]*entity.Manager, error) {
	managers, err := s.managers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	return managers, nil
}

func (s *vendorServiceImpl) ListTeam(ctx context.Context, managerID string) ([]*entity.Vendor, error) {
	if err := s.requireManager(ctx, managerID); err != nil {
		return nil, err
	}
	return s.vendors.ListByManager(ctx, managerID)
}

func (s *vendorServiceImpl) requireManager(ctx context.Context, managerID string) error {
	m, err := s.managers.GetByID(ctx, managerID)
	if err != nil {
		return fmt.Errorf("get manager: %w", err)
	}
	if m == nil {
		return apperr.NotFound("manager", managerID)
	}
	return nil
}
