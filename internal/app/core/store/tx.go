package store

import (
	"errors"

	"github.com/google/btree"
)

// pending Tx 暫存的一筆寫入，deleted 為 true 代表刪除
type pending struct {
	key     string
	value   []byte
	deleted bool
}

func pendingLess(a, b pending) bool { return a.key < b.key }

// Tx 疊在任意 KV 上的寫入暫存層
//
// 所有寫入先留在 Tx 內，讀取會先看 Tx 再看底層。
// Commit 才真正寫到底層；出錯時直接丟掉 Tx，底層完全不受影響。
type Tx struct {
	parent  KV
	overlay *btree.BTreeG[pending]
}

// NewTx 建立疊在 parent 上的 Tx
func NewTx(parent KV) *Tx {
	return &Tx{
		parent:  parent,
		overlay: btree.NewG(btreeDegree, pendingLess),
	}
}

func (t *Tx) Get(key []byte) ([]byte, error) {
	if p, ok := t.overlay.Get(pending{key: string(key)}); ok {
		if p.deleted {
			return nil, ErrNotFound
		}
		return cloneBytes(p.value), nil
	}
	return t.parent.Get(key)
}

func (t *Tx) Set(key, value []byte) error {
	t.overlay.ReplaceOrInsert(pending{key: string(key), value: cloneBytes(value)})
	return nil
}

func (t *Tx) Delete(key []byte) error {
	t.overlay.ReplaceOrInsert(pending{key: string(key), deleted: true})
	return nil
}

// Range 把底層的有序結果與暫存層的有序結果合併走訪
func (t *Tx) Range(prefix []byte, fn func(key, value []byte) error) error {
	var staged []pending
	start := pending{key: string(prefix)}
	collect := func(p pending) bool {
		staged = append(staged, p)
		return true
	}
	if end := PrefixEnd(prefix); end != nil {
		t.overlay.AscendRange(start, pending{key: string(end)}, collect)
	} else {
		t.overlay.AscendGreaterOrEqual(start, collect)
	}

	i := 0
	// emitBefore 送出 key 小於 limit 的暫存寫入
	emitBefore := func(limit string, all bool) error {
		for ; i < len(staged) && (all || staged[i].key < limit); i++ {
			if staged[i].deleted {
				continue
			}
			if err := fn([]byte(staged[i].key), cloneBytes(staged[i].value)); err != nil {
				return err
			}
		}
		return nil
	}

	err := t.parent.Range(prefix, func(key, value []byte) error {
		k := string(key)
		if err := emitBefore(k, false); err != nil {
			return err
		}
		if i < len(staged) && staged[i].key == k {
			// 暫存層蓋掉底層
			p := staged[i]
			i++
			if p.deleted {
				return nil
			}
			return fn(key, cloneBytes(p.value))
		}
		return fn(key, value)
	})
	if err != nil {
		return err
	}
	return emitBefore("", true)
}

// Pending 尚未 Commit 的寫入筆數
func (t *Tx) Pending() int {
	return t.overlay.Len()
}

// Commit 把暫存寫入底層
// 底層實作 Batcher 時整批一次套用，否則依 key 順序逐筆寫入
func (t *Tx) Commit() error {
	if t.Pending() == 0 {
		return nil
	}
	defer t.Discard()

	if batcher, ok := t.parent.(Batcher); ok {
		b := &Batch{
			Puts:    make(map[string][]byte),
			Deletes: make(map[string]struct{}),
		}
		t.overlay.Ascend(func(p pending) bool {
			if p.deleted {
				b.Deletes[p.key] = struct{}{}
			} else {
				b.Puts[p.key] = p.value
			}
			return true
		})
		return batcher.ApplyBatch(b)
	}

	var errs []error
	t.overlay.Ascend(func(p pending) bool {
		var err error
		if p.deleted {
			err = t.parent.Delete([]byte(p.key))
		} else {
			err = t.parent.Set([]byte(p.key), p.value)
		}
		if err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// Discard 丟掉所有暫存寫入
func (t *Tx) Discard() {
	t.overlay.Clear(false)
}

var _ KV = (*Tx)(nil)
