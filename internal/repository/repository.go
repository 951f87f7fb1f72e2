package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"stockwatch/internal/models"
)

// Repository is the persistence surface used by the services. Getters return
// (nil, nil) when the row does not exist.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users
	CreateUser(ctx context.Context, item *models.User) error
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	GetUserByPINHash(ctx context.Context, pinHash string) (*models.User, error)

	// Portfolios
	CreatePortfolio(ctx context.Context, item *models.Portfolio) error
	GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error)
	GetPortfolioByUserID(ctx context.Context, userID uint64) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]models.Portfolio, error)
	UpdatePortfolio(ctx context.Context, id uint64, updates map[string]any) error
	DeletePortfolio(ctx context.Context, id uint64) error

	// Stocks
	InsertStock(ctx context.Context, item *models.Stock) error
	GetStockBySymbol(ctx context.Context, portfolioID uint64, symbol string) (*models.Stock, error)
	ListStocksByPortfolioID(ctx context.Context, portfolioID uint64) ([]models.Stock, error)
	DeleteStock(ctx context.Context, portfolioID uint64, symbol string) (int64, error)
	// SaveStockChecks writes the check results and delivery records of one
	// portfolio in a single transaction.
	SaveStockChecks(ctx context.Context, stocks []models.Stock, deliveries []models.AlertDelivery) error

	// Alert deliveries
	InsertAlertDelivery(ctx context.Context, item *models.AlertDelivery) error
	ListAlertDeliveries(ctx context.Context, params ListAlertDeliveriesParams) ([]models.AlertDelivery, error)
	CountAlertDeliveries(ctx context.Context, params ListAlertDeliveriesParams) (int64, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

type ListAlertDeliveriesParams struct {
	Limit       int
	Offset      int
	PortfolioID *uint64
	Symbol      *string
	Trigger     *string
	Success     *bool
	Since       *time.Time
	OrderBy     string
	Asc         *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
