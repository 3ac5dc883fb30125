package database

import (
	"lokanta-backend/internal/config"
	"lokanta-backend/internal/logger"
	"lokanta-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	// TranslateError: duplicate key gibi sürücü hatalarını gorm.ErrDuplicatedKey'e çevirir,
	// create-or-fetch yarışları sürücüden bağımsız yakalanır.
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.L().Fatal("veritabanına bağlanılamadı", zap.Error(err))
	}

	if err := MigrateAll(DB); err != nil {
		logger.L().Fatal("AutoMigrate hatası", zap.Error(err))
	}

	logger.L().Info("veritabanı bağlantısı başarılı, migration tamamlandı")
}

// MigrateAll: tüm modelleri migrate eder. Testler de aynı şemayı
// sqlite üzerinde kurmak için bunu çağırır.
func MigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.MoneyAccount{},
		&models.CashTransaction{},
		&models.Product{},
		&models.BranchProduct{},
		&models.StockImport{},
		&models.StockImportItem{},
		&models.FoodCategory{},
		&models.Food{},
		&models.FoodItem{},
		&models.SetItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderPayment{},
		&models.AuditLog{},
	)
}
