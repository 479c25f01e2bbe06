package domain

import "time"

const (
	EventTransactionPosted = "transaction.posted"
	EventAccountOpened     = "account.opened"

	StreamTransactionEvents = "transaction.events"
	StreamAccountEvents     = "account.events"
)

// Event 對外發佈的領域事件
type Event struct {
	Stream    string    `json:"-"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransactionPosted 交易完成事件內容
type TransactionPosted struct {
	TransactionID             string `json:"transactionId"`
	AccountNumber             string `json:"accountNumber"`
	Type                      string `json:"type"`
	Amount                    string `json:"amount"`
	BalanceAfter              string `json:"balanceAfter"`
	CounterpartyAccountNumber string `json:"counterpartyAccountNumber,omitempty"`
	Sequence                  uint64 `json:"sequence"`
}

// AccountOpened 開戶事件內容
type AccountOpened struct {
	AccountNumber string `json:"accountNumber"`
	OwnerID       string `json:"ownerId"`
	AccountType   string `json:"accountType"`
}

// NewTransactionPostedEvent 由交易紀錄建立事件
func NewTransactionPostedEvent(r *TransactionRecord) Event {
	return Event{
		Stream:    StreamTransactionEvents,
		Type:      EventTransactionPosted,
		Timestamp: r.Timestamp,
		Data: TransactionPosted{
			TransactionID:             r.TransactionID,
			AccountNumber:             r.AccountNumber,
			Type:                      string(r.Type),
			Amount:                    r.Amount.StringFixed(CurrencyScale),
			BalanceAfter:              r.BalanceAfter.StringFixed(CurrencyScale),
			CounterpartyAccountNumber: r.CounterpartyAccountNumber,
			Sequence:                  r.Sequence,
		},
	}
}

// NewAccountOpenedEvent 由帳戶建立事件
func NewAccountOpenedEvent(a *Account) Event {
	return Event{
		Stream:    StreamAccountEvents,
		Type:      EventAccountOpened,
		Timestamp: a.OpenedAt,
		Data: AccountOpened{
			AccountNumber: a.AccountNumber,
			OwnerID:       a.OwnerID,
			AccountType:   string(a.Type),
		},
	}
}
