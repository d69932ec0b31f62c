package dao

import "time"

// ApprovalDao maps to the approvals table.
type ApprovalDao struct {
	tableName        struct{}   `bun:"table:approvals"` // nolint
	ID               int64      `bun:",pk,autoincrement"`
	SrcChainKey      string     `bun:",notnull,type:varchar(16)"`
	Nonce            int64      `bun:",notnull"`
	DestChainID      string     `bun:",notnull,type:varchar(16)"`
	XChainHashID     string     `bun:",notnull,type:varchar(80)"`
	Token            string     `bun:",notnull,type:varchar(80)"`
	Recipient        string     `bun:",notnull,type:varchar(80)"`
	Amount           string     `bun:",notnull,type:varchar(64)"`
	Fee              string     `bun:",notnull,type:varchar(64),default:'0'"`
	FeeRecipient     string     `bun:",type:varchar(80)"`
	DeductFromAmount bool       `bun:",notnull,default:false"`
	TxHash           *string    `bun:",type:varchar(80)"`
	Status           string     `bun:",notnull,type:varchar(16),default:'pending'"`
	Attempts         int        `bun:",notnull,default:0"`
	LastAttemptAt    *time.Time `bun:",nullzero"`
	RetryAfter       *time.Time `bun:",nullzero"`
	ErrorMessage     *string    `bun:",type:text"`
	CreatedAt        time.Time  `bun:",notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:",notnull,default:current_timestamp"`
}

// ReleaseDao maps to the releases table, mirroring ApprovalDao for the
// reverse direction (Cosmos source, EVM destination).
type ReleaseDao struct {
	tableName        struct{}   `bun:"table:releases"` // nolint
	ID               int64      `bun:",pk,autoincrement"`
	SrcChainKey      string     `bun:",notnull,type:varchar(16)"`
	Nonce            int64      `bun:",notnull"`
	DestChainID      string     `bun:",notnull,type:varchar(16)"`
	XChainHashID     string     `bun:",notnull,type:varchar(80)"`
	Token            string     `bun:",notnull,type:varchar(80)"`
	Recipient        string     `bun:",notnull,type:varchar(80)"`
	Amount           string     `bun:",notnull,type:varchar(64)"`
	Fee              string     `bun:",notnull,type:varchar(64),default:'0'"`
	FeeRecipient     string     `bun:",type:varchar(80)"`
	DeductFromAmount bool       `bun:",notnull,default:false"`
	TxHash           *string    `bun:",type:varchar(80)"`
	Status           string     `bun:",notnull,type:varchar(16),default:'pending'"`
	Attempts         int        `bun:",notnull,default:0"`
	LastAttemptAt    *time.Time `bun:",nullzero"`
	RetryAfter       *time.Time `bun:",nullzero"`
	ErrorMessage     *string    `bun:",type:text"`
	CreatedAt        time.Time  `bun:",notnull,default:current_timestamp"`
	UpdatedAt        time.Time  `bun:",notnull,default:current_timestamp"`
}
