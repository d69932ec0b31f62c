package dao

import "time"

// CosmosDepositDao maps to the cosmos_deposits table.
type CosmosDepositDao struct {
	tableName       struct{}  `bun:"table:cosmos_deposits"` // nolint
	ID              int64     `bun:",pk,autoincrement"`
	TxHash          string    `bun:",notnull,type:varchar(80)"`
	Nonce           int64     `bun:",notnull"`
	Sender          string    `bun:",notnull,type:varchar(80)"`
	Recipient       string    `bun:",notnull,type:varchar(80)"`
	Token           string    `bun:",notnull,type:varchar(80)"`
	Amount          string    `bun:",notnull,type:varchar(64)"`
	DestChainID     string    `bun:",notnull,type:varchar(16)"`
	BlockHeight     int64     `bun:",notnull"`
	EVMTokenAddress string    `bun:",notnull,type:varchar(80)"`
	Status          string    `bun:",notnull,type:varchar(16),default:'pending'"`
	ErrorMessage    *string   `bun:",type:text"`
	CreatedAt       time.Time `bun:",notnull,default:current_timestamp"`
	UpdatedAt       time.Time `bun:",notnull,default:current_timestamp"`
}
