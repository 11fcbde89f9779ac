package mysql

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
)

// sqlEntry 對應資料庫的 pool_entries 表，一列一個 key
// key 是 MySQL 保留字，欄位名稱改用 entry_key / entry_value
type sqlEntry struct {
	EntryKey   []byte `gorm:"column:entry_key;type:varbinary(255);primaryKey"`
	EntryValue []byte `gorm:"column:entry_value;type:blob;not null"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlEntry) TableName() string {
	return "pool_entries"
}

// gormKV 把 gorm 連線 (通常是交易中的 tx) 包成 store.KV
type gormKV struct {
	db *gorm.DB
}

func (kv *gormKV) Get(key []byte) ([]byte, error) {
	var entry sqlEntry
	err := kv.db.Where("entry_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.EntryValue, nil
}

func (kv *gormKV) Set(key, value []byte) error {
	return kv.upsert([]sqlEntry{{EntryKey: key, EntryValue: value}})
}

func (kv *gormKV) Delete(key []byte) error {
	return kv.db.Where("entry_key = ?", key).Delete(&sqlEntry{}).Error
}

// Range VARBINARY 以位元組比較排序，與 MemoryStore 的順序一致
func (kv *gormKV) Range(prefix []byte, fn func(key, value []byte) error) error {
	query := kv.db.Where("entry_key >= ?", prefix)
	if end := store.PrefixEnd(prefix); end != nil {
		query = query.Where("entry_key < ?", end)
	}
	var entries []sqlEntry
	if err := query.Order("entry_key").Find(&entries).Error; err != nil {
		return err
	}
	for _, e := range entries {
		if err := fn(e.EntryKey, e.EntryValue); err != nil {
			return err
		}
	}
	return nil
}

// ApplyBatch 一次 INSERT ... ON DUPLICATE KEY UPDATE 寫入整批
func (kv *gormKV) ApplyBatch(b *store.Batch) error {
	for key := range b.Deletes {
		if err := kv.Delete([]byte(key)); err != nil {
			return err
		}
	}
	if len(b.Puts) == 0 {
		return nil
	}
	entries := make([]sqlEntry, 0, len(b.Puts))
	for key, value := range b.Puts {
		entries = append(entries, sqlEntry{EntryKey: []byte(key), EntryValue: value})
	}
	return kv.upsert(entries)
}

func (kv *gormKV) upsert(entries []sqlEntry) error {
	return kv.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
	}).Create(&entries).Error
}

var (
	_ store.KV      = (*gormKV)(nil)
	_ store.Batcher = (*gormKV)(nil)
)
