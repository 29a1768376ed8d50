package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafe-pos/api/internal/model"
	"github.com/shopspring/decimal"
)

// SettingsUpdate carries the fields an admin may change. Nil fields keep
// their current value.
type SettingsUpdate struct {
	TaxRate           *decimal.Decimal
	ServiceChargeRate *decimal.Decimal
	Currency          *string
	CafeName          *string
	ReceiptFooter     *string
}

// Settings returns the settings singleton, creating it from the policy
// defaults the first time it is read.
func (l *Lifecycle) Settings(ctx context.Context) (model.Settings, error) {
	s, err := l.store.GetSettings(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	def := l.policy.DefaultSettings
	def.UpdatedAt = l.now().UTC()
	if def.Currency == "" {
		def.Currency = "NPR"
	}
	s, err = l.store.SaveSettings(ctx, def)
	if err != nil {
		return model.Settings{}, fmt.Errorf("create settings: %w", err)
	}
	l.log.WithField("tax_rate", s.TaxRate.String()).Info("settings created with defaults")
	return s, nil
}

func (l *Lifecycle) UpdateSettings(ctx context.Context, u SettingsUpdate) (model.Settings, error) {
	s, err := l.Settings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	if u.TaxRate != nil {
		if !validRate(*u.TaxRate) {
			return model.Settings{}, fmt.Errorf("tax_rate: %w", ErrInvalidRate)
		}
		s.TaxRate = *u.TaxRate
	}
	if u.ServiceChargeRate != nil {
		if !validRate(*u.ServiceChargeRate) {
			return model.Settings{}, fmt.Errorf("service_charge_rate: %w", ErrInvalidRate)
		}
		s.ServiceChargeRate = *u.ServiceChargeRate
	}
	if u.Currency != nil {
		s.Currency = *u.Currency
	}
	if u.CafeName != nil {
		s.CafeName = *u.CafeName
	}
	if u.ReceiptFooter != nil {
		s.ReceiptFooter = *u.ReceiptFooter
	}
	s.UpdatedAt = l.now().UTC()
	saved, err := l.store.SaveSettings(ctx, s)
	if err != nil {
		return model.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return saved, nil
}

func validRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}
