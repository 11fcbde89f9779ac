package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// 常用的權限常量
const (
	// rw-r--r-- 一般檔案
	FileModeReadOnly fs.FileMode = 0644

	// rwxr-xr-x 目錄
	FileModeDir fs.FileMode = 0755

	// rw------- 只有擁有者可讀寫
	FileModePrivate fs.FileMode = 0600
)

// ErrBroken 寫入失敗後無法把檔案退回上一筆完整資料，WAL 不再接受寫入
var ErrBroken = errors.New("wal: broken after failed write")

// WAL 以 JSON Lines 格式追加寫入的日誌
//
// Write 只寫進緩衝區，必須呼叫 Flush 才會真正落盤 (fsync)。
// Write 或 Flush 失敗時會清掉緩衝區，並把檔案截斷回上一次成功 Flush 的位置，
// 失敗的資料不會在重啟後被重放；截斷也失敗時 WAL 進入 ErrBroken 狀態。
type WAL struct {
	file *os.File
	w    *bufio.Writer
	mu   sync.Mutex

	// synced 已經 fsync 的檔案長度，pending 之後寫出但尚未 fsync 的長度
	synced  int64
	pending int64
	broken  error
	fsync   func() error
}

// NewWAL 開啟或建立一個 WAL 檔案，上層目錄不存在會一併建立
// O_APPEND 每次寫入時自動跳到文件末尾
func NewWAL(path string) (*WAL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, FileModeDir); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &WAL{
		file:   file,
		w:      bufio.NewWriter(file),
		synced: info.Size(),
		fsync:  file.Sync,
	}, nil
}

// Write 寫入一筆資料到緩衝區
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return fmt.Errorf("%w: %v", ErrBroken, w.broken)
	}
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// 超過緩衝區大小的資料會直接寫進檔案，長度要自己記
	n, err := w.w.Write(append(line, '\n'))
	w.pending += int64(n)
	if err != nil {
		w.rollbackLocked()
		return err
	}
	return nil
}

// Flush 把緩衝區寫入檔案並 fsync
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *WAL) flushLocked() error {
	if w.broken != nil {
		return fmt.Errorf("%w: %v", ErrBroken, w.broken)
	}
	err := w.w.Flush()
	if err == nil {
		err = w.fsync()
	}
	if err != nil {
		w.rollbackLocked()
		return err
	}
	w.synced += w.pending
	w.pending = 0
	return nil
}

// rollbackLocked 丟掉緩衝區並把檔案截斷回 synced
func (w *WAL) rollbackLocked() {
	w.w.Reset(w.file)
	w.pending = 0
	if err := w.file.Truncate(w.synced); err != nil {
		w.broken = err
		return
	}
	if err := w.fsync(); err != nil {
		w.broken = err
	}
}

// Close 刷入剩餘資料後關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	flushErr := w.flushLocked()
	return errors.Join(flushErr, w.file.Close())
}

// ReadAll 從頭依序讀取每一筆資料交給 callback
//
// 最後一行若只寫了一半 (寫入途中當機)，會把檔案截斷到最後一筆完整資料，
// 之後的 Write 從乾淨的位置繼續追加。
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushLocked(); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(bufio.NewReader(w.file))
	var good int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if err := w.file.Truncate(good); err != nil {
					return err
				}
				w.synced = good
				return nil
			}
			return err
		}
		good = decoder.InputOffset()
		if err := callback(raw); err != nil {
			return err
		}
	}
}
