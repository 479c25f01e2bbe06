package domain

import "strings"

const (
	// AccountNumberLength 帳號固定 11 位數字
	AccountNumberLength = 11
	// TransactionIDPrefix 交易編號前綴
	TransactionIDPrefix = "TRANS"
	// TransactionIDDigits 交易編號前綴後的數字位數
	TransactionIDDigits = 5
)

// IsValidAccountNumber 檢查是否為 11 位 ASCII 數字
func IsValidAccountNumber(s string) bool {
	return len(s) == AccountNumberLength && allDigits(s)
}

// IsValidTransactionID 檢查是否為 TRANS + 5 位數字
func IsValidTransactionID(s string) bool {
	digits, ok := strings.CutPrefix(s, TransactionIDPrefix)
	return ok && len(digits) == TransactionIDDigits && allDigits(digits)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
