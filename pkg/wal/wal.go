package wal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileModePrivate rw------- (只有擁有者可讀寫)，帳務資料預設使用
const FileModePrivate fs.FileMode = 0600

// ErrBroken 寫入失敗且無法復原檔尾，之後的 Write 一律拒絕
var ErrBroken = errors.New("wal is broken")

// File WAL 需要的檔案操作 (*os.File 即符合)
type File interface {
	io.ReadWriteSeeker
	Sync() error
	Truncate(size int64) error
	Close() error
}

// WAL 以 JSON Lines 格式追加寫入的 Write-Ahead Log
type WAL struct {
	file   File
	mu     sync.Mutex
	broken error
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	return New(file), nil
}

// New 以已開啟的檔案建立 WAL
func New(file File) *WAL {
	return &WAL{file: file}
}

// Write 寫入一筆資料並 fsync
//
// 回傳錯誤時檔案內容與呼叫前相同：寫到一半或 fsync 失敗都會截回原本的長度，
// 重啟後不會重放呼叫端已被告知失敗的資料。截回也失敗時 WAL 進入 broken 狀態。
func (w *WAL) Write(v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return fmt.Errorf("%w: %v", ErrBroken, w.broken)
	}

	offset, err := w.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return w.rollbackLocked(offset, err)
	}
	if err := w.file.Sync(); err != nil {
		return w.rollbackLocked(offset, err)
	}
	return nil
}

// rollbackLocked 把檔案截回 offset (呼叫端需持有 mu)
func (w *WAL) rollbackLocked(offset int64, cause error) error {
	err := w.file.Truncate(offset)
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		w.broken = fmt.Errorf("write failed (%v), rollback to offset %d failed: %w", cause, offset, err)
		return fmt.Errorf("%w: %v", ErrBroken, w.broken)
	}
	return cause
}

// Sync 強制刷入硬碟
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 依寫入順序重放所有資料
// callback 接收單筆 JSON，避免一次將所有資料載入記憶體
//
// 檔尾若是寫到一半的資料 (當機時未 fsync 完成) 會被截掉，
// 這筆資料從未回覆成功給呼叫端；截掉後續的 Write 才不會接在殘缺資料後面。
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var complete int64
	for {
		var raw json.RawMessage
		err := decoder.Decode(&raw)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return w.truncateLocked(complete)
		default:
			return fmt.Errorf("wal corrupted at offset %d: %w", complete, err)
		}
		complete = decoder.InputOffset()
		if err := callback(raw); err != nil {
			return err
		}
	}
}

func (w *WAL) truncateLocked(size int64) error {
	if err := w.file.Truncate(size); err != nil {
		return fmt.Errorf("truncate torn wal tail: %w", err)
	}
	return w.file.Sync()
}
