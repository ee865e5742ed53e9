package business

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sme-finance/identity/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrBusinessNotFound = errors.New("business not found")
	ErrBusinessExists   = errors.New("user already has a business setup")
	ErrNameTooShort     = errors.New("business name must be at least 2 characters long")
	ErrInvalidCurrency  = errors.New("unsupported currency")
	ErrInvalidLogo      = errors.New("logo must be a jpeg or png image")
)

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// FindByUserID is the explicit optional lookup for the user's profile;
// absence is a value, not an exception.
func (s *Service) FindByUserID(userID uint) (*Business, error) {
	var b Business
	err := s.db.Where("user_id = ?", userID).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to look up business: %w", err)
	}
	return &b, nil
}

func (s *Service) Setup(userID uint, name, currency, logoURL, businessType string) (*Business, error) {
	if _, err := s.FindByUserID(userID); err == nil {
		return nil, ErrBusinessExists
	} else if !errors.Is(err, ErrBusinessNotFound) {
		return nil, err
	}

	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}
	if err := validateLogo(logoURL); err != nil {
		return nil, err
	}

	b := &Business{
		UserID:   userID,
		Name:     name,
		Currency: currency,
		LogoURL:  logoURL,
		Type:     businessType,
	}

	if err := s.db.Create(b).Error; err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}

	s.logger.Info("business profile created",
		zap.Uint("user_id", userID),
		zap.Uint("business_id", b.ID))

	return b, nil
}

// Update applies a partial update; empty fields are left unchanged.
func (s *Service) Update(userID uint, name, currency, logoURL, businessType string) (*Business, error) {
	b, err := s.FindByUserID(userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		if err := validateName(name); err != nil {
			return nil, err
		}
		b.Name = name
	}
	if currency != "" {
		if err := validateCurrency(currency); err != nil {
			return nil, err
		}
		b.Currency = currency
	}
	if logoURL != "" {
		if err := validateLogo(logoURL); err != nil {
			return nil, err
		}
		b.LogoURL = logoURL
	}
	if businessType != "" {
		b.Type = businessType
	}

	if err := s.db.Save(b).Error; err != nil {
		return nil, fmt.Errorf("failed to update business: %w", err)
	}

	return b, nil
}

func validateName(name string) error {
	if len(name) < 2 {
		return ErrNameTooShort
	}
	return nil
}

func validateCurrency(currency string) error {
	if !slices.Contains(Currencies, currency) {
		return ErrInvalidCurrency
	}
	return nil
}

// validateLogo accepts jpeg/png by extension; logos are stored as
// URLs, upload mechanics live elsewhere.
func validateLogo(logoURL string) error {
	if logoURL == "" {
		return nil
	}

	lowered := strings.ToLower(logoURL)
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		if strings.HasSuffix(lowered, ext) {
			return nil
		}
	}
	return ErrInvalidLogo
}
