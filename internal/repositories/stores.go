package repository

import (
	"github.com/redis/rueidis"
	"gorm.io/gorm"

	model "time-exchange.com/time-exchange/internal/models"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Task{}, &model.User{}, &model.Transfer{}, &model.Settlement{})
}

func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Tasks:       NewTaskRepository(db),
		Balances:    NewUserRepository(db),
		Settlements: NewSettlementRepository(db),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

func NewRedisStores(client rueidis.Client, prefix string) Stores {
	return Stores{
		Tasks:       NewRedisTaskRepository(client, prefix),
		Balances:    NewRedisUserRepository(client, prefix),
		Settlements: NewRedisSettlementRepository(client, prefix),
		Close: func() error {
			client.Close()
			return nil
		},
	}
}
