package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// MaxAllocationAttempts 單次配號最多嘗試的候選數
const MaxAllocationAttempts = 1000

// DigitSource 產生 n 位隨機數字字串
type DigitSource func(n int) (string, error)

// IDAllocator 產生帳號與交易編號
//
// 存在檢查只是預先過濾，真正保證唯一的是儲存層的唯一約束
// (CreateAccount / Commit 回傳 Duplicate 錯誤時由呼叫端重新配號)。
type IDAllocator struct {
	accounts    AccountStore
	journal     Journal
	digits      DigitSource
	maxAttempts int
}

// AllocatorOption 配號器選項
type AllocatorOption func(*IDAllocator)

// WithDigitSource 替換隨機來源 (測試用)
func WithDigitSource(src DigitSource) AllocatorOption {
	return func(a *IDAllocator) {
		a.digits = src
	}
}

// WithMaxAllocationAttempts 調整最多嘗試次數
func WithMaxAllocationAttempts(n int) AllocatorOption {
	return func(a *IDAllocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// NewIDAllocator 建立配號器
//
// 參數:
//
//	accounts: 用於帳號存在檢查
//	journal: 用於交易編號存在檢查
//	opts: 選項
//
// 回傳:
//
//	*IDAllocator: 配號器 (可並發使用)
func NewIDAllocator(accounts AccountStore, journal Journal, opts ...AllocatorOption) *IDAllocator {
	a := &IDAllocator{
		accounts:    accounts,
		journal:     journal,
		digits:      cryptoDigits,
		maxAttempts: MaxAllocationAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAccountNumber 產生尚未使用的 11 位數帳號
func (a *IDAllocator) NewAccountNumber(ctx context.Context) (string, error) {
	return a.allocate(ctx, "", domain.AccountNumberLength, a.accounts.AccountExists)
}

// NewTransactionID 產生尚未使用的 TRANS + 5 位數交易編號
func (a *IDAllocator) NewTransactionID(ctx context.Context) (string, error) {
	return a.allocate(ctx, domain.TransactionIDPrefix, domain.TransactionIDDigits, a.journal.TransactionExists)
}

// MaxAttempts 回傳單次配號的嘗試上限
func (a *IDAllocator) MaxAttempts() int {
	return a.maxAttempts
}

func (a *IDAllocator) allocate(
	ctx context.Context,
	prefix string,
	n int,
	exists func(context.Context, string) (bool, error),
) (string, error) {
	for i := 0; i < a.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		digits, err := a.digits(n)
		if err != nil {
			return "", fmt.Errorf("generate identifier: %w", err)
		}
		candidate := prefix + digits
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free identifier after %d attempts", domain.ErrAllocationExhausted, a.maxAttempts)
}

var ten = big.NewInt(10)

func cryptoDigits(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
