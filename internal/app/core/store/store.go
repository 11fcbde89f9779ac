// Package store 定義帳本使用的 key-value 介面，以及記憶體實作與交易暫存層。
package store

import "errors"

var (
	// ErrNotFound key 不存在
	ErrNotFound = errors.New("key not found")

	// ErrCorruptValue 存放的資料無法解碼
	ErrCorruptValue = errors.New("corrupt value")
)

// KV 是帳本底層的儲存介面
type KV interface {
	// Get 取得 key 對應的值，不存在時回傳 ErrNotFound
	Get(key []byte) ([]byte, error)
	// Set 寫入 key
	Set(key, value []byte) error
	// Delete 刪除 key，不存在時不算錯誤
	Delete(key []byte) error
	// Range 依 key 的位元組順序遞增走訪 prefix 底下所有資料，fn 回傳錯誤即中止
	Range(prefix []byte, fn func(key, value []byte) error) error
}

// Batch 一次要套用的所有寫入
type Batch struct {
	Puts    map[string][]byte
	Deletes map[string]struct{}
}

// Len 寫入筆數
func (b *Batch) Len() int {
	return len(b.Puts) + len(b.Deletes)
}

// Batcher 可以原子性地套用整個 Batch 的 KV
type Batcher interface {
	ApplyBatch(b *Batch) error
}

// PrefixEnd 回傳 prefix 範圍的上界 (不含)，prefix 全是 0xff 時回傳 nil 代表沒有上界
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
