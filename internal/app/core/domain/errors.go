package domain

import "errors"

var (
	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrForbidden 帳戶不屬於呼叫者
	ErrForbidden = errors.New("account does not belong to customer")

	// ErrInvalidAmount 金額必須為正數，且最多兩位小數
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLimitExceeded 超過單筆提款/轉帳上限
	ErrLimitExceeded = errors.New("amount exceeds limit")

	// ErrSameAccountTransfer 不可轉帳給自己
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrDuplicateAccountNumber 帳號已存在
	ErrDuplicateAccountNumber = errors.New("duplicate account number")

	// ErrDuplicateTransactionID 交易編號已存在 (引擎會重新配號並重試)
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")

	// ErrAllocationExhausted 配號重試次數用盡
	ErrAllocationExhausted = errors.New("identifier allocation exhausted")

	// ErrVersionConflict 樂觀鎖版本不符
	ErrVersionConflict = errors.New("account version conflict")

	// ErrContention 樂觀重試次數用盡
	ErrContention = errors.New("too much contention on account")

	// ErrStorageFailure 儲存層 I/O 錯誤
	ErrStorageFailure = errors.New("storage failure")

	// ErrTransactionNotFound 找不到交易紀錄
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidAccountType 不支援的帳戶類型
	ErrInvalidAccountType = errors.New("invalid account type")
)
