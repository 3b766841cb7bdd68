package repository

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/iliyamo/referral-service/internal/database"
	"github.com/iliyamo/referral-service/internal/model"
)

// DocumentRepo persists documents attached to users. Each referral
// submission adds a row; nothing enforces one document per user.
type DocumentRepo struct{ DB database.DBTX }

func NewDocumentRepo(db database.DBTX) *DocumentRepo { return &DocumentRepo{DB: db} }

// InsertTx stores d inside tx and sets its generated id.
func (r *DocumentRepo) InsertTx(ctx context.Context, tx database.DBTX, d *model.Document) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO documents (user_id, type_id, data) VALUES (?, ?, ?)",
		d.UserID, d.TypeID, string(d.Data))
	if err != nil {
		return errors.Wrap(err, "insert document")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "insert document: last insert id")
	}
	d.ID = uint64(id)
	return nil
}

// ListByUser returns the decoded payloads of a user's documents in insertion order.
func (r *DocumentRepo) ListByUser(ctx context.Context, userID uint64) ([]json.RawMessage, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, data FROM documents WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var (
			id, uid uint64
			data    string
		)
		if err := rows.Scan(&id, &uid, &data); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		payload, err := decodePayload(id, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	return docs, nil
}

// ListAllByUser returns every document payload grouped by owning user id.
func (r *DocumentRepo) ListAllByUser(ctx context.Context) (map[uint64][]json.RawMessage, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, user_id, data FROM documents ORDER BY user_id, id")
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	defer rows.Close()

	out := make(map[uint64][]json.RawMessage)
	for rows.Next() {
		var (
			id, uid uint64
			data    string
		)
		if err := rows.Scan(&id, &uid, &data); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		payload, err := decodePayload(id, data)
		if err != nil {
			return nil, err
		}
		out[uid] = append(out[uid], payload)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	return out, nil
}

// decodePayload checks that stored text is a JSON object and returns it
// unchanged.
func decodePayload(id uint64, data string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &obj); err != nil || obj == nil {
		return nil, errors.Wrapf(ErrMalformedDocument, "document %d", id)
	}
	return json.RawMessage(data), nil
}
