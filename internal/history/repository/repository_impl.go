package repository

import (
	"context"

	historydomain "github.com/smallbiznis/quotient/internal/history/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProviderParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type provider struct {
	db  *gorm.DB
	log *zap.Logger
}

// Provide returns the database-backed historical data provider.
func Provide(p ProviderParam) historydomain.Provider {
	return &provider{db: p.DB, log: p.Log.Named("history.provider")}
}

func (p *provider) Transactions(ctx context.Context) ([]historydomain.Transaction, error) {
	var rows []historydomain.Transaction
	if err := p.db.WithContext(ctx).Order("date").Find(&rows).Error; err != nil {
		return nil, err
	}
	p.log.Debug("loaded historical transactions", zap.Int("rows", len(rows)))
	return rows, nil
}

// BulkInsert seeds the historical table. Used only by the startup seeder.
func BulkInsert(ctx context.Context, db *gorm.DB, rows []historydomain.Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, 500).Error
}

// Count reports how many historical rows are present.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&historydomain.Transaction{}).Count(&count).Error
	return count, err
}
