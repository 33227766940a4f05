package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tokencore/internal/config"
	"tokencore/internal/model"
)

var DB *gorm.DB

// InitMySQL opens the MySQL connection pool and migrates this core's own
// table set (balances, transactions, consumption entries, the outbox) —
// none of the teacher's order/product/refund tables carry over, since
// the domain this core tracks is a token balance, not a product order.
func InitMySQL(cfg *config.MySQLConfig) *gorm.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("failed to connect to MySQL: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get underlying DB handle: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	err = db.AutoMigrate(
		&model.UserBalance{},
		&model.PaymentTransaction{},
		&model.ConsumptionEntry{},
		&model.OutboxMessage{},
	)
	if err != nil {
		log.Fatalf("failed to auto-migrate schema: %v", err)
	}

	DB = db
	log.Println("MySQL connected")
	return db
}
