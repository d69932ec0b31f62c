// Package dao holds bun-tagged structs used only for schema creation; the
// store itself talks to Postgres through database/sql (see pkg/store), but
// migrations describe the schema declaratively the way the rest of the
// codebase does.
package dao

import "time"

// EVMDepositDao maps to the evm_deposits table.
type EVMDepositDao struct {
	tableName        struct{}  `bun:"table:evm_deposits"` // nolint
	ID               int64     `bun:",pk,autoincrement"`
	ChainID          string    `bun:",notnull,type:varchar(16)"`
	TxHash           string    `bun:",notnull,type:varchar(80)"`
	LogIndex         int       `bun:",notnull"`
	Nonce            int64     `bun:",notnull"`
	DestChainKey     string    `bun:",notnull,type:varchar(16)"`
	DestTokenAddress string    `bun:",notnull,type:varchar(80)"`
	DestAccount      string    `bun:",notnull,type:varchar(80)"`
	Token            string    `bun:",notnull,type:varchar(80)"`
	Amount           string    `bun:",notnull,type:varchar(64)"`
	BlockNumber      int64     `bun:",notnull"`
	BlockHash        string    `bun:",notnull,type:varchar(80)"`
	DestChainType    string    `bun:",notnull,type:varchar(16)"`
	SrcAccount       string    `bun:",notnull,type:varchar(80)"`
	SrcV2ChainID     string    `bun:",notnull,type:varchar(16)"`
	Status           string    `bun:",notnull,type:varchar(16),default:'pending'"`
	ErrorMessage     *string   `bun:",type:text"`
	CreatedAt        time.Time `bun:",notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:",notnull,default:current_timestamp"`
}
