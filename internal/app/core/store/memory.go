package store

import (
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

// entry btree 的節點，依 key 的位元組順序排列
type entry struct {
	key   string
	value []byte
}

func entryLess(a, b entry) bool { return a.key < b.key }

// MemoryStore 以 btree 實作的有序 KV，可被多個 goroutine 同時讀取
type MemoryStore struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// NewMemoryStore 建立空的 MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tree: btree.NewG(btreeDegree, entryLess),
	}
}

func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tree.Get(entry{key: string(key)})
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(e.value), nil
}

func (s *MemoryStore) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(entry{key: string(key), value: cloneBytes(value)})
	return nil
}

func (s *MemoryStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(entry{key: string(key)})
	return nil
}

// Range 先在鎖內複製 [prefix, PrefixEnd(prefix)) 的資料，再於鎖外呼叫 fn，
// fn 裡可以安全地寫回 store
func (s *MemoryStore) Range(prefix []byte, fn func(key, value []byte) error) error {
	var entries []entry
	s.mu.RLock()
	ascendPrefix(s.tree, prefix, func(e entry) bool {
		entries = append(entries, entry{key: e.key, value: cloneBytes(e.value)})
		return true
	})
	s.mu.RUnlock()

	for _, e := range entries {
		if err := fn([]byte(e.key), e.value); err != nil {
			return err
		}
	}
	return nil
}

// ascendPrefix 依序走訪 tree 中以 prefix 開頭的節點
func ascendPrefix(tree *btree.BTreeG[entry], prefix []byte, fn func(entry) bool) {
	start := entry{key: string(prefix)}
	if end := PrefixEnd(prefix); end != nil {
		tree.AscendRange(start, entry{key: string(end)}, fn)
		return
	}
	tree.AscendGreaterOrEqual(start, fn)
}

// ApplyBatch 在同一把鎖內套用整個 Batch，讀取端不會看到一半的結果
func (s *MemoryStore) ApplyBatch(b *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range b.Deletes {
		s.tree.Delete(entry{key: k})
	}
	for k, v := range b.Puts {
		s.tree.ReplaceOrInsert(entry{key: k, value: cloneBytes(v)})
	}
	return nil
}

// Snapshot 回傳目前資料的複本，用於需要一致視圖的多 key 查詢
// btree 的 Clone 是 copy-on-write，之後兩邊的寫入互不影響
func (s *MemoryStore) Snapshot() *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &MemoryStore{tree: s.tree.Clone()}
}

// Len 目前的 key 數量
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

var (
	_ KV      = (*MemoryStore)(nil)
	_ Batcher = (*MemoryStore)(nil)
)
