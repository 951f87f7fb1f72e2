package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stockwatch/internal/models"
	"stockwatch/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- users ------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetUserByPINHash(ctx context.Context, pinHash string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	pinHash = strings.TrimSpace(pinHash)
	if pinHash == "" {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("pin_hash = ?", pinHash).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- portfolios -------------------------------------------------------------

func (s *Store) CreatePortfolio(ctx context.Context, item *models.Portfolio) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (s *Store) GetPortfolioByID(ctx context.Context, id uint64) (*models.Portfolio, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	return s.firstPortfolio(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) GetPortfolioByUserID(ctx context.Context, userID uint64) (*models.Portfolio, error) {
	if s == nil || s.db == nil || userID == 0 {
		return nil, nil
	}
	return s.firstPortfolio(s.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (s *Store) firstPortfolio(query *gorm.DB) (*models.Portfolio, error) {
	var item models.Portfolio
	err := query.Preload("Stocks", orderStocks).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Portfolio
	if err := s.db.WithContext(ctx).
		Preload("Stocks", orderStocks).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Portfolio{}).Where("id = ?", id).Updates(updates).Error
}

// DeletePortfolio removes the portfolio with its stocks and delivery history.
// Stocks are deleted explicitly so the cascade holds even when the database
// was created without foreign keys.
func (s *Store) DeletePortfolio(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("portfolio_id = ?", id).Delete(&models.AlertDelivery{}).Error; err != nil {
			return err
		}
		if err := tx.Where("portfolio_id = ?", id).Delete(&models.Stock{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Portfolio{}).Error
	})
}

// --- stocks -----------------------------------------------------------------

func (s *Store) InsertStock(ctx context.Context, item *models.Stock) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetStockBySymbol(ctx context.Context, portfolioID uint64, symbol string) (*models.Stock, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if portfolioID == 0 || symbol == "" {
		return nil, nil
	}
	var item models.Stock
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Where("symbol = ?", symbol).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStocksByPortfolioID(ctx context.Context, portfolioID uint64) ([]models.Stock, error) {
	if s == nil || s.db == nil || portfolioID == 0 {
		return nil, nil
	}
	var items []models.Stock
	if err := orderStocks(s.db.WithContext(ctx).Where("portfolio_id = ?", portfolioID)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteStock(ctx context.Context, portfolioID uint64, symbol string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	res := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Where("symbol = ?", symbol).
		Delete(&models.Stock{})
	return res.RowsAffected, res.Error
}

// SaveStockChecks overwrites the metric and latch columns of each stock and
// appends the delivery records. Stocks removed while the check ran are skipped.
func (s *Store) SaveStockChecks(ctx context.Context, stocks []models.Stock, deliveries []models.AlertDelivery) error {
	if s == nil || s.db == nil || (len(stocks) == 0 && len(deliveries) == 0) {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range stocks {
			st := stocks[i]
			if st.ID == 0 {
				continue
			}
			updates := map[string]any{
				"last_price":          st.LastPrice,
				"ma_200":              st.MA200,
				"distance_to_ma":      st.DistanceToMA,
				"last_checked":        st.LastChecked,
				"notification_sent":   st.NotificationSent,
				"last_ma_break_date":  st.LastMABreakDate,
				"days_since_ma_break": st.DaysSinceMABreak,
			}
			if err := tx.Model(&models.Stock{}).Where("id = ?", st.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return createInBatches(tx, deliveries, 200)
	})
}

// --- alert deliveries -------------------------------------------------------

func (s *Store) InsertAlertDelivery(ctx context.Context, item *models.AlertDelivery) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListAlertDeliveries(ctx context.Context, params repository.ListAlertDeliveriesParams) ([]models.AlertDelivery, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := alertDeliveryFilters(s.db.WithContext(ctx).Model(&models.AlertDelivery{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.AlertDelivery
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAlertDeliveries(ctx context.Context, params repository.ListAlertDeliveriesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := alertDeliveryFilters(s.db.WithContext(ctx).Model(&models.AlertDelivery{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func alertDeliveryFilters(query *gorm.DB, params repository.ListAlertDeliveriesParams) *gorm.DB {
	if params.PortfolioID != nil {
		query = query.Where("portfolio_id = ?", *params.PortfolioID)
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.Trigger != nil && strings.TrimSpace(*params.Trigger) != "" {
		query = query.Where("triggered_by = ?", strings.TrimSpace(*params.Trigger))
	}
	if params.Success != nil {
		query = query.Where("success = ?", *params.Success)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := settingsFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := settingsFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func settingsFilters(query *gorm.DB, params repository.ListSystemSettingsParams) *gorm.DB {
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	return query
}

// --- helpers ----------------------------------------------------------------

func orderStocks(db *gorm.DB) *gorm.DB {
	return db.Order("symbol asc")
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return db.CreateInBatches(items, batchSize).Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

var _ repository.Repository = (*Store)(nil)
