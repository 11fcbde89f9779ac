package sqlkv

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
)

type kvRow struct {
	Key   []byte `db:"entry_key"`
	Value []byte `db:"entry_value"`
}

// sqlxKV 把 sqlx 連線或交易包成 store.KV
// BLOB / BYTEA 都以位元組比較排序，Range 的順序與 MemoryStore 一致
type sqlxKV struct {
	ctx context.Context
	q   sqlx.ExtContext
}

func (kv *sqlxKV) Get(key []byte) ([]byte, error) {
	var value []byte
	err := sqlx.GetContext(kv.ctx, kv.q, &value,
		kv.q.Rebind("SELECT entry_value FROM pool_entries WHERE entry_key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return value, err
}

func (kv *sqlxKV) Set(key, value []byte) error {
	_, err := kv.q.ExecContext(kv.ctx, kv.q.Rebind(
		`INSERT INTO pool_entries (entry_key, entry_value) VALUES (?, ?)
		ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value`), key, value)
	return err
}

func (kv *sqlxKV) Delete(key []byte) error {
	_, err := kv.q.ExecContext(kv.ctx, kv.q.Rebind("DELETE FROM pool_entries WHERE entry_key = ?"), key)
	return err
}

func (kv *sqlxKV) Range(prefix []byte, fn func(key, value []byte) error) error {
	var rows []kvRow
	var err error
	if end := store.PrefixEnd(prefix); end != nil {
		err = sqlx.SelectContext(kv.ctx, kv.q, &rows, kv.q.Rebind(
			"SELECT entry_key, entry_value FROM pool_entries WHERE entry_key >= ? AND entry_key < ? ORDER BY entry_key"),
			prefix, end)
	} else {
		err = sqlx.SelectContext(kv.ctx, kv.q, &rows, kv.q.Rebind(
			"SELECT entry_key, entry_value FROM pool_entries WHERE entry_key >= ? ORDER BY entry_key"),
			prefix)
	}
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r.Key, r.Value); err != nil {
			return err
		}
	}
	return nil
}

var _ store.KV = (*sqlxKV)(nil)
