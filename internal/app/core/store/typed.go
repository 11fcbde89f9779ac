package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Item 存在單一 key 的 JSON 紀錄
type Item[T any] struct {
	key []byte
}

// NewItem 建立 Item
func NewItem[T any](key string) Item[T] {
	return Item[T]{key: []byte(key)}
}

// Key 回傳底層 key
func (i Item[T]) Key() []byte {
	return cloneBytes(i.key)
}

// Load 讀取紀錄，不存在時回傳 ErrNotFound
func (i Item[T]) Load(kv KV) (T, error) {
	var v T
	raw, err := kv.Get(i.key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrCorruptValue, i.key, err)
	}
	return v, nil
}

// MayLoad 讀取紀錄，不存在時 ok 為 false
func (i Item[T]) MayLoad(kv KV) (v T, ok bool, err error) {
	v, err = i.Load(kv)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Save 寫入紀錄
func (i Item[T]) Save(kv KV, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Set(i.key, raw)
}

// AmountMap 以身分為 key 的金額表，key = namespace + 身分
type AmountMap struct {
	namespace []byte
}

// NewAmountMap 建立 AmountMap
func NewAmountMap(namespace string) AmountMap {
	return AmountMap{namespace: []byte(namespace)}
}

// Key 組出帳戶的完整 key
func (m AmountMap) Key(account string) []byte {
	key := make([]byte, 0, len(m.namespace)+len(account))
	key = append(key, m.namespace...)
	return append(key, account...)
}

// MayLoad 讀取帳戶金額，從未寫入過的帳戶回傳 0
func (m AmountMap) MayLoad(kv KV, account string) (uint64, error) {
	raw, err := kv.Get(m.Key(account))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeAmount(m.Key(account), raw)
}

// Save 寫入帳戶金額 (0 也照樣寫入，帳戶不會被刪除)
func (m AmountMap) Save(kv KV, account string, amount uint64) error {
	return kv.Set(m.Key(account), encodeAmount(amount))
}

// Update 讀出帳戶金額交給 fn 計算後寫回，fn 出錯則不寫入
func (m AmountMap) Update(kv KV, account string, fn func(uint64) (uint64, error)) (uint64, error) {
	current, err := m.MayLoad(kv, account)
	if err != nil {
		return 0, err
	}
	next, err := fn(current)
	if err != nil {
		return 0, err
	}
	return next, m.Save(kv, account, next)
}

// Range 依身分遞增順序走訪所有帳戶
func (m AmountMap) Range(kv KV, fn func(account string, amount uint64) error) error {
	return kv.Range(m.namespace, func(key, value []byte) error {
		amount, err := decodeAmount(key, value)
		if err != nil {
			return err
		}
		return fn(string(key[len(m.namespace):]), amount)
	})
}

func encodeAmount(amount uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, amount)
	return buf
}

func decodeAmount(key, raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: %s: want 8 bytes, got %d", ErrCorruptValue, key, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}
