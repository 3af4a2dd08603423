package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"stregsystem/internal/domain/auth"
	"stregsystem/internal/domain/payment"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of the append-only operator audit log.
type AuditEntry struct {
	ID                uuid.UUID       `db:"id"`
	Actor             string          `db:"actor"`
	Action            string          `db:"action"`
	Details           json.RawMessage `db:"details"`
	DetailsCompressed []byte          `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Compile-time check that AuditService implements payment.Auditor.
var _ payment.Auditor = (*AuditService)(nil)

// AuditService records operator actions (payment tool submissions,
// commits, reimbursements, razzia creation) in an append-only table.
// Large payloads are zstd-compressed.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record writes one audit entry. An empty actor falls back to the
// authenticated operator on the context.
func (s *AuditService) Record(ctx context.Context, actor, action string, details map[string]any) error {
	if actor == "" {
		if op := auth.OperatorFrom(ctx); op != nil {
			actor = op.Username
		}
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	entry := AuditEntry{
		ID:              uuid.New(),
		Actor:           actor,
		Action:          action,
		Details:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(payload) > s.compressThreshold {
		entry.DetailsCompressed = s.encoder.EncodeAll(payload, nil)
		entry.Details = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO audit_log (
			id, actor, action, details, details_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.Actor, entry.Action,
		entry.Details, entry.DetailsCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	return err
}

// History retrieves the latest entries for an action, newest first.
func (s *AuditService) History(ctx context.Context, action string, limit int) ([]AuditEntry, error) {
	sql := `
		SELECT id, actor, action, details, details_compressed, compression_algo, created_at
		FROM audit_log
		WHERE action = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, action, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Details, &e.DetailsCompressed, &e.CompressionAlgo, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.CompressionAlgo == CompressionZstd && len(e.DetailsCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.DetailsCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit details: %w", err)
			}
			e.Details = decompressed
			e.DetailsCompressed = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
