package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SearchCriteria 交易搜尋條件，nil / 空字串代表不限制
type SearchCriteria struct {
	AccountNumber string
	// Type 大小寫必須完全一致
	Type      string
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// Normalize 去除空白，空白字串視為未填
func (c SearchCriteria) Normalize() SearchCriteria {
	c.AccountNumber = strings.TrimSpace(c.AccountNumber)
	c.Type = strings.TrimSpace(c.Type)
	return c
}

// MatchesNothing 條件本身就不可能有結果 (未知的 Type、區間顛倒)
func (c SearchCriteria) MatchesNothing() bool {
	if c.Type != "" {
		if _, ok := ParseTransactionType(c.Type); !ok {
			return true
		}
	}
	if c.From != nil && c.To != nil && c.From.After(*c.To) {
		return true
	}
	if c.MinAmount != nil && c.MaxAmount != nil && c.MinAmount.GreaterThan(*c.MaxAmount) {
		return true
	}
	return false
}

// Matches 判斷單筆紀錄是否符合條件 (區間兩端皆包含)
func (c SearchCriteria) Matches(r *TransactionRecord) bool {
	if c.AccountNumber != "" && r.AccountNumber != c.AccountNumber {
		return false
	}
	if c.Type != "" && string(r.Type) != c.Type {
		return false
	}
	if c.From != nil && r.Timestamp.Before(*c.From) {
		return false
	}
	if c.To != nil && r.Timestamp.After(*c.To) {
		return false
	}
	if c.MinAmount != nil && r.Amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && r.Amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	return true
}

// SearchQuery 交給 Journal 的查詢：限定 OwnerID 名下帳戶
// Limit 為 0 時回傳全部
type SearchQuery struct {
	OwnerID  string
	Criteria SearchCriteria
	Offset   int
	Limit    int
}

// Page 分頁結果 (Page 從 0 開始)
type Page struct {
	Content       []*TransactionRecord
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
	First         bool
	Last          bool
}

// NewPage 依總筆數計算分頁資訊
func NewPage(content []*TransactionRecord, page, size int, total int64) *Page {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	if content == nil {
		content = []*TransactionRecord{}
	}
	return &Page{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}
}
