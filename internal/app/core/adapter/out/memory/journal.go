package memory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/store"
	"github.com/JoeShih716/go-stake-ledger/pkg/wal"
)

// book 兩種記憶體帳本共用的狀態，本身不做任何同步
//
//	state: 帳本資料
//	processed: 已處理過的 CommandID
//	sequence: 最後一個成功指令的序號
type book struct {
	engine    *engine.Engine
	state     *store.MemoryStore
	processed map[uuid.UUID]struct{}
	sequence  uint64
	wal       *wal.WAL
}

func newBook(eng *engine.Engine, w *wal.WAL) *book {
	return &book{
		engine:    eng,
		state:     store.NewMemoryStore(),
		processed: make(map[uuid.UUID]struct{}),
		wal:       w,
	}
}

// recoverFromWAL 依序重放 WAL 中的指令 (不寫入 WAL)
// WAL 只會有成功過的指令，重放失敗代表檔案與程式版本不一致，直接回報錯誤
func (b *book) recoverFromWAL() error {
	if b.wal == nil {
		return nil
	}
	return b.wal.ReadAll(func(jsonRaw []byte) error {
		var cmd domain.Command
		if err := json.Unmarshal(jsonRaw, &cmd); err != nil {
			return err
		}
		if _, err := b.engine.Execute(b.state, &cmd); err != nil {
			return fmt.Errorf("replay command %d (%s): %w", cmd.Sequence, cmd.CommandID, err)
		}
		b.markProcessed(&cmd)
		return nil
	})
}

// apply 套用單一指令
//
// 順序: 冪等檢查 -> 在 Tx 中執行 -> 寫入 WAL 並刷入硬碟 -> Commit
// 任何一步失敗都不會改變記憶體狀態，失敗的指令也不會進 WAL。
func (b *book) apply(cmd *domain.Command) (*domain.Response, error) {
	if err := cmd.CheckID(); err != nil {
		return nil, err
	}
	if _, ok := b.processed[cmd.CommandID]; ok {
		return nil, domain.ErrCommandAlreadyProcessed
	}

	cmd.Sequence = b.sequence + 1
	tx := store.NewTx(b.state)
	resp, err := b.engine.Apply(tx, cmd)
	if err != nil {
		tx.Discard()
		return nil, err
	}

	// 1. 寫入 WAL (Critical Path)
	if b.wal != nil {
		if err := b.wal.Write(cmd); err != nil {
			tx.Discard()
			return nil, fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
		// 刷入硬碟
		if err := b.wal.Flush(); err != nil {
			tx.Discard()
			return nil, fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}

	// 2. 寫回記憶體
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	b.markProcessed(cmd)
	return resp, nil
}

func (b *book) markProcessed(cmd *domain.Command) {
	if cmd.Sequence > b.sequence {
		b.sequence = cmd.Sequence
	}
	if cmd.CommandID != uuid.Nil {
		b.processed[cmd.CommandID] = struct{}{}
	}
}
