package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
)

type accountModel struct {
	Number     int64           `gorm:"column:number;primaryKey;autoIncrement"`
	HolderName string          `gorm:"column:holder_name;size:50;not null"`
	Balance    decimal.Decimal `gorm:"column:balance;type:decimal(20,4);not null"`
}

func (accountModel) TableName() string {
	return "accounts"
}

type transactionModel struct {
	ID                   int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DateTime             time.Time       `gorm:"column:date_time;not null"`
	Type                 string          `gorm:"column:type;size:50;not null"`
	SourceAccountFK      int64           `gorm:"column:source_account_fk;not null;index"`
	DestinationAccountFK *int64          `gorm:"column:destination_account_fk;index"`
	Amount               decimal.Decimal `gorm:"column:amount;type:decimal(20,4);not null"`

	// Only used to derive the foreign keys during AutoMigrate.
	SourceAccount      *accountModel `gorm:"foreignKey:SourceAccountFK;references:Number"`
	DestinationAccount *accountModel `gorm:"foreignKey:DestinationAccountFK;references:Number"`
}

func (transactionModel) TableName() string {
	return "transactions"
}
