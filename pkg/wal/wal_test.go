package wal_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

type entry struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

func readEntries(t *testing.T, w *wal.WAL) []entry {
	t.Helper()
	var out []entry
	require.NoError(t, w.ReadAll(func(raw []byte) error {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	}))
	return out
}

func TestWAL_WriteAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(entry{ID: 1, Value: "a"}))
	require.NoError(t, w.Write(entry{ID: 2, Value: "b"}))
	require.NoError(t, w.Close())

	reopened, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, []entry{{1, "a"}, {2, "b"}}, readEntries(t, reopened))

	// 重放後繼續追加
	require.NoError(t, reopened.Write(entry{ID: 3, Value: "c"}))
	assert.Len(t, readEntries(t, reopened), 3)
}

func TestWAL_IgnoresTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(entry{ID: 1, Value: "a"}))
	require.NoError(t, w.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":2,"val`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, []entry{{1, "a"}}, readEntries(t, reopened))

	// 殘缺資料已被截掉，之後追加的資料可以正常重放
	require.NoError(t, reopened.Write(entry{ID: 3, Value: "c"}))
	assert.Equal(t, []entry{{1, "a"}, {3, "c"}}, readEntries(t, reopened))
}

func TestWAL_CorruptedMiddleIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":1}\nnot-json\n{\"id\":2}\n"), 0o600))

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	assert.ErrorContains(t, w.ReadAll(func([]byte) error { return nil }), "wal corrupted")
}

func TestWAL_UnencodableValueLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Write(make(chan int)))
	assert.Empty(t, readEntries(t, w))
}

// faultyFile 在指定時機讓寫入、fsync 或截斷失敗
type faultyFile struct {
	*os.File
	shortWrite   bool // 下一次 Write 只寫入一半
	failSync     int  // 接下來 n 次 Sync 失敗
	failTruncate bool
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.shortWrite {
		f.shortWrite = false
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errors.New("no space left on device")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSync > 0 {
		f.failSync--
		return errors.New("fsync: input/output error")
	}
	return f.File.Sync()
}

func (f *faultyFile) Truncate(size int64) error {
	if f.failTruncate {
		return errors.New("read-only file system")
	}
	return f.File.Truncate(size)
}

func openFaulty(t *testing.T) (string, *faultyFile, *wal.WAL) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wal.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, wal.FileModePrivate)
	require.NoError(t, err)
	faulty := &faultyFile{File: file}
	return path, faulty, wal.New(faulty)
}

func replay(t *testing.T, path string) []entry {
	t.Helper()
	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	return readEntries(t, w)
}

func TestWAL_FailedWriteIsRolledBack(t *testing.T) {
	tests := []struct {
		name  string
		fault func(f *faultyFile)
	}{
		{name: "short write", fault: func(f *faultyFile) { f.shortWrite = true }},
		{name: "fsync failure", fault: func(f *faultyFile) { f.failSync = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, faulty, w := openFaulty(t)

			require.NoError(t, w.Write(entry{ID: 1, Value: "a"}))
			tt.fault(faulty)
			require.Error(t, w.Write(entry{ID: 2, Value: "lost"}))
			require.NoError(t, w.Write(entry{ID: 3, Value: "c"}))
			require.NoError(t, w.Close())

			// 失敗的那筆不會在重啟後出現，後續資料也能正常重放
			assert.Equal(t, []entry{{1, "a"}, {3, "c"}}, replay(t, path))
		})
	}
}

func TestWAL_FailedRollbackStopsWrites(t *testing.T) {
	_, faulty, w := openFaulty(t)
	defer w.Close()

	require.NoError(t, w.Write(entry{ID: 1, Value: "a"}))
	faulty.shortWrite = true
	faulty.failTruncate = true
	assert.ErrorIs(t, w.Write(entry{ID: 2, Value: "b"}), wal.ErrBroken)

	// 檔尾狀態未知，之後一律拒絕寫入
	faulty.failTruncate = false
	assert.ErrorIs(t, w.Write(entry{ID: 3, Value: "c"}), wal.ErrBroken)
}
