// Package store is the shared durable record the operator and canceler
// coordinate through: deposits, approvals, releases, and per-chain cursors.
// It is the only cross-task shared state in the system (§5); every method
// is a short, self-contained transaction.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store provides database operations for the bridge.
type Store struct {
	db *sql.DB
}

// New opens a Postgres connection pool and verifies connectivity.
func New(connString string) (*Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertEVMDeposit records a newly observed EVM Deposit event. Idempotent on
// (chain_id, tx_hash, log_index): a duplicate insert is a no-op, not an
// error, so the watcher can safely reprocess the tail of a chunk after a
// restart.
func (s *Store) InsertEVMDeposit(d *EVMDeposit) error {
	query := `
		INSERT INTO evm_deposits (
			chain_id, tx_hash, log_index, nonce, dest_chain_key, dest_token_address,
			dest_account, token, amount, block_number, block_hash, dest_chain_type,
			src_account, src_v2_chain_id, status, error_message
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
	`
	_, err := s.db.Exec(query,
		d.ChainID, d.TxHash, d.LogIndex, d.Nonce, d.DestChainKey, d.DestTokenAddress,
		d.DestAccount, d.Token, d.Amount, d.BlockNumber, d.BlockHash, d.DestChainType,
		d.SrcAccount, d.SrcV2ChainID, d.Status, d.ErrorMessage,
	)
	return err
}

// InsertCosmosDeposit records a newly observed Cosmos wasm deposit event,
// idempotent on (tx_hash, nonce).
func (s *Store) InsertCosmosDeposit(d *CosmosDeposit) error {
	query := `
		INSERT INTO cosmos_deposits (
			tx_hash, nonce, sender, recipient, token, amount, dest_chain_id,
			block_height, evm_token_address, status, error_message
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (tx_hash, nonce) DO NOTHING
	`
	_, err := s.db.Exec(query,
		d.TxHash, d.Nonce, d.Sender, d.Recipient, d.Token, d.Amount, d.DestChainID,
		d.BlockHeight, d.EVMTokenAddress, d.Status, d.ErrorMessage,
	)
	return err
}

// GetPendingCosmosDeposits returns cosmos_deposits rows still awaiting the
// legacy DB-driven approval path (§4.6.2), oldest first.
func (s *Store) GetPendingCosmosDeposits(destChainID string, limit int) ([]*CosmosDeposit, error) {
	query := `
		SELECT id, tx_hash, nonce, sender, recipient, token, amount, dest_chain_id,
			block_height, evm_token_address, status, error_message, created_at, updated_at
		FROM cosmos_deposits
		WHERE dest_chain_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := s.db.Query(query, destChainID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CosmosDeposit
	for rows.Next() {
		d := &CosmosDeposit{}
		if err := rows.Scan(&d.ID, &d.TxHash, &d.Nonce, &d.Sender, &d.Recipient, &d.Token,
			&d.Amount, &d.DestChainID, &d.BlockHeight, &d.EVMTokenAddress, &d.Status,
			&d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkCosmosDepositStatus updates a cosmos_deposits row's status, used once
// the legacy path either inserts an approval or flags a data inconsistency.
func (s *Store) MarkCosmosDepositStatus(id int64, status DepositStatus, errMsg *string) error {
	_, err := s.db.Exec(
		`UPDATE cosmos_deposits SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		status, errMsg, id,
	)
	return err
}

// MarkEVMDepositStatus updates an evm_deposits row's status.
func (s *Store) MarkEVMDepositStatus(id int64, status DepositStatus, errMsg *string) error {
	_, err := s.db.Exec(
		`UPDATE evm_deposits SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		status, errMsg, id,
	)
	return err
}

// UpsertApproval inserts or retries an approval row, keyed on
// (src_chain_key, nonce, dest_chain_id). A failed row is reset to pending on
// upsert so the writer's next cycle retries it; this uniqueness constraint
// is the cross-task coordination primitive described in §5.
func (s *Store) UpsertApproval(a *Approval) error {
	query := `
		INSERT INTO approvals (
			src_chain_key, nonce, dest_chain_id, xchain_hash_id, token, recipient,
			amount, fee, fee_recipient, deduct_from_amount, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (src_chain_key, nonce, dest_chain_id) DO UPDATE SET
			status = CASE WHEN approvals.status = 'failed' THEN 'pending' ELSE approvals.status END,
			updated_at = NOW()
	`
	_, err := s.db.Exec(query,
		a.SrcChainKey, a.Nonce, a.DestChainID, a.XChainHashID, a.Token, a.Recipient,
		a.Amount, a.Fee, a.FeeRecipient, a.DeductFromAmount, a.Status,
	)
	return err
}

// GetApprovalByHash looks up an approval by its xchain_hash_id.
func (s *Store) GetApprovalByHash(hash string) (*Approval, error) {
	a := &Approval{}
	query := `
		SELECT id, src_chain_key, nonce, dest_chain_id, xchain_hash_id, token, recipient,
			amount, fee, fee_recipient, deduct_from_amount, tx_hash, status, attempts,
			last_attempt_at, retry_after, error_message, created_at, updated_at
		FROM approvals WHERE xchain_hash_id = $1
	`
	err := s.db.QueryRow(query, hash).Scan(
		&a.ID, &a.SrcChainKey, &a.Nonce, &a.DestChainID, &a.XChainHashID, &a.Token,
		&a.Recipient, &a.Amount, &a.Fee, &a.FeeRecipient, &a.DeductFromAmount,
		&a.TxHash, &a.Status, &a.Attempts, &a.LastAttemptAt, &a.RetryAfter,
		&a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetPendingApprovals returns pending approvals ready for retry (no
// retry_after or retry_after in the past), oldest first.
func (s *Store) GetPendingApprovals(limit int) ([]*Approval, error) {
	query := `
		SELECT id, src_chain_key, nonce, dest_chain_id, xchain_hash_id, token, recipient,
			amount, fee, fee_recipient, deduct_from_amount, tx_hash, status, attempts,
			last_attempt_at, retry_after, error_message, created_at, updated_at
		FROM approvals
		WHERE status = 'pending' AND (retry_after IS NULL OR retry_after <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Approval
	for rows.Next() {
		a := &Approval{}
		if err := rows.Scan(
			&a.ID, &a.SrcChainKey, &a.Nonce, &a.DestChainID, &a.XChainHashID, &a.Token,
			&a.Recipient, &a.Amount, &a.Fee, &a.FeeRecipient, &a.DeductFromAmount,
			&a.TxHash, &a.Status, &a.Attempts, &a.LastAttemptAt, &a.RetryAfter,
			&a.ErrorMessage, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkApprovalSubmitted records a successful on-chain submission.
func (s *Store) MarkApprovalSubmitted(id int64, txHash string) error {
	_, err := s.db.Exec(
		`UPDATE approvals SET status = 'submitted', tx_hash = $1, attempts = attempts + 1,
			last_attempt_at = NOW(), updated_at = NOW() WHERE id = $2`,
		txHash, id,
	)
	return err
}

// MarkApprovalFailed records a failed attempt and schedules the next retry.
func (s *Store) MarkApprovalFailed(id int64, errMsg string, retryAfter time.Time) error {
	_, err := s.db.Exec(
		`UPDATE approvals SET status = 'failed', error_message = $1, attempts = attempts + 1,
			last_attempt_at = NOW(), retry_after = $2, updated_at = NOW() WHERE id = $3`,
		errMsg, retryAfter, id,
	)
	return err
}

// UpsertRelease mirrors UpsertApproval for the reverse-direction table.
func (s *Store) UpsertRelease(r *Release) error {
	query := `
		INSERT INTO releases (
			src_chain_key, nonce, dest_chain_id, xchain_hash_id, token, recipient,
			amount, fee, fee_recipient, deduct_from_amount, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (src_chain_key, nonce, dest_chain_id) DO UPDATE SET
			status = CASE WHEN releases.status = 'failed' THEN 'pending' ELSE releases.status END,
			updated_at = NOW()
	`
	_, err := s.db.Exec(query,
		r.SrcChainKey, r.Nonce, r.DestChainID, r.XChainHashID, r.Token, r.Recipient,
		r.Amount, r.Fee, r.FeeRecipient, r.DeductFromAmount, r.Status,
	)
	return err
}

// GetCursor returns the last-processed block/height for a chain, or nil if
// never recorded (first poll).
func (s *Store) GetCursor(chainID, kind string) (*Cursor, error) {
	c := &Cursor{}
	query := `SELECT chain_id, kind, last_processed, updated_at FROM cursors WHERE chain_id = $1 AND kind = $2`
	err := s.db.QueryRow(query, chainID, kind).Scan(&c.ChainID, &c.Kind, &c.LastProcessed, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetCursor advances the cursor for a chain. Callers must only call this
// after a chunk has been fully and successfully processed (§5 ordering
// guarantee).
func (s *Store) SetCursor(chainID, kind string, lastProcessed uint64) error {
	query := `
		INSERT INTO cursors (chain_id, kind, last_processed)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain_id, kind)
		DO UPDATE SET last_processed = $3, updated_at = NOW()
	`
	_, err := s.db.Exec(query, chainID, kind, lastProcessed)
	return err
}

// ResetCursor clears a chain's cursor back to zero, used on reorg/chain-reset
// detection (§4.2, §8 "Polling cursor safety").
func (s *Store) ResetCursor(chainID, kind string) error {
	return s.SetCursor(chainID, kind, 0)
}
