package dao

import "time"

// CursorDao maps to the cursors table, composite-keyed on (chain_id, kind).
type CursorDao struct {
	tableName     struct{}  `bun:"table:cursors"` // nolint
	ChainID       string    `bun:",pk,type:varchar(16)"`
	Kind          string    `bun:",pk,type:varchar(16)"`
	LastProcessed int64     `bun:",notnull,default:0"`
	UpdatedAt     time.Time `bun:",notnull,default:current_timestamp"`
}
