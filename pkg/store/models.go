package store

import "time"

// DepositStatus tracks an observed deposit through registry resolution and
// approval submission.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusProcessed DepositStatus = "processed"
	DepositStatusFailed    DepositStatus = "failed"
)

// ApprovalStatus mirrors the approval/release retry pacing described by the
// error handling design: failed rows are retried, not abandoned.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusSubmitted ApprovalStatus = "submitted"
	ApprovalStatusConfirmed ApprovalStatus = "confirmed"
	ApprovalStatusFailed    ApprovalStatus = "failed"
	ApprovalStatusReorged   ApprovalStatus = "reorged"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
)

// DestChainType routes a deposit to the correct watcher/writer pairing.
type DestChainType string

const (
	DestChainTypeEVM    DestChainType = "evm"
	DestChainTypeCosmos DestChainType = "cosmos"
)

// EVMDeposit is one row of evm_deposits: an observed Deposit event on an EVM
// chain, unique on (chain_id, tx_hash, log_index).
type EVMDeposit struct {
	ID               int64         `db:"id"`
	ChainID          string        `db:"chain_id"` // hex V2 chain ID of the source chain
	TxHash           string        `db:"tx_hash"`
	LogIndex         int           `db:"log_index"`
	Nonce            uint64        `db:"nonce"`
	DestChainKey     string        `db:"dest_chain_key"`
	DestTokenAddress string        `db:"dest_token_address"`
	DestAccount      string        `db:"dest_account"` // hex UniversalAddress
	Token            string        `db:"token"`        // hex EVM address
	Amount           string        `db:"amount"`        // decimal string
	BlockNumber      uint64        `db:"block_number"`
	BlockHash        string        `db:"block_hash"`
	DestChainType    DestChainType `db:"dest_chain_type"`
	SrcAccount       string        `db:"src_account"` // hex UniversalAddress
	SrcV2ChainID     string        `db:"src_v2_chain_id"`
	Status           DepositStatus `db:"status"`
	ErrorMessage     *string       `db:"error_message"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// CosmosDeposit is one row of cosmos_deposits, unique on (tx_hash, nonce).
type CosmosDeposit struct {
	ID               int64         `db:"id"`
	TxHash           string        `db:"tx_hash"`
	Nonce            uint64        `db:"nonce"`
	Sender           string        `db:"sender"` // bech32
	Recipient        string        `db:"recipient"`
	Token            string        `db:"token"`
	Amount           string        `db:"amount"`
	DestChainID      string        `db:"dest_chain_id"`
	BlockHeight       uint64        `db:"block_height"`
	EVMTokenAddress  string        `db:"evm_token_address"`
	Status           DepositStatus `db:"status"`
	ErrorMessage     *string       `db:"error_message"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// Approval is one row of approvals, unique on
// (src_chain_key, nonce, dest_chain_id).
type Approval struct {
	ID               int64          `db:"id"`
	SrcChainKey      string         `db:"src_chain_key"`
	Nonce            uint64         `db:"nonce"`
	DestChainID      string         `db:"dest_chain_id"`
	XChainHashID     string         `db:"xchain_hash_id"`
	Token            string         `db:"token"`
	Recipient        string         `db:"recipient"`
	Amount           string         `db:"amount"`
	Fee              string         `db:"fee"`
	FeeRecipient     string         `db:"fee_recipient"`
	DeductFromAmount bool           `db:"deduct_from_amount"`
	TxHash           *string        `db:"tx_hash"`
	Status           ApprovalStatus `db:"status"`
	Attempts         int            `db:"attempts"`
	LastAttemptAt    *time.Time     `db:"last_attempt_at"`
	RetryAfter       *time.Time     `db:"retry_after"`
	ErrorMessage     *string        `db:"error_message"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// Release mirrors Approval for the reverse direction.
type Release struct {
	ID               int64          `db:"id"`
	SrcChainKey      string         `db:"src_chain_key"`
	Nonce            uint64         `db:"nonce"`
	DestChainID      string         `db:"dest_chain_id"`
	XChainHashID     string         `db:"xchain_hash_id"`
	Token            string         `db:"token"`
	Recipient        string         `db:"recipient"`
	Amount           string         `db:"amount"`
	Fee              string         `db:"fee"`
	FeeRecipient     string         `db:"fee_recipient"`
	DeductFromAmount bool           `db:"deduct_from_amount"`
	TxHash           *string        `db:"tx_hash"`
	Status           ApprovalStatus `db:"status"`
	Attempts         int            `db:"attempts"`
	LastAttemptAt    *time.Time     `db:"last_attempt_at"`
	RetryAfter       *time.Time     `db:"retry_after"`
	ErrorMessage     *string        `db:"error_message"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// Cursor tracks the last-processed block/height per chain, used by both EVM
// and Cosmos watchers. CursorKind distinguishes "evm" block cursors from
// "cosmos" height cursors sharing the same table shape.
type Cursor struct {
	ChainID        string    `db:"chain_id"`
	Kind           string    `db:"kind"` // "evm" or "cosmos"
	LastProcessed  uint64    `db:"last_processed"`
	UpdatedAt      time.Time `db:"updated_at"`
}
