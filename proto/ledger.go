package proto

// CustomerIDMetadataKey 呼叫端身分 (由上游驗證後帶入)
const CustomerIDMetadataKey = "x-customer-id"

// RequestIDMetadataKey 請求追蹤編號，未帶時由伺服器產生
const RequestIDMetadataKey = "x-request-id"

// Account 帳戶資訊，金額以字串表示 (小數點後 2 位)
type Account struct {
	AccountNumber   string `protobuf:"bytes,1,opt,name=account_number,proto3" json:"accountNumber"`
	OwnerID         string `protobuf:"bytes,2,opt,name=owner_id,proto3" json:"ownerId"`
	AccountType     string `protobuf:"bytes,3,opt,name=account_type,proto3" json:"accountType"`
	Status          string `protobuf:"bytes,4,opt,name=status,proto3" json:"status"`
	Balance         string `protobuf:"bytes,5,opt,name=balance,proto3" json:"balance"`
	WithdrawalLimit string `protobuf:"bytes,6,opt,name=withdrawal_limit,proto3" json:"withdrawalLimit"`
	TransferLimit   string `protobuf:"bytes,7,opt,name=transfer_limit,proto3" json:"transferLimit"`
	MinimumBalance  string `protobuf:"bytes,8,opt,name=minimum_balance,proto3" json:"minimumBalance"`
	MonthlyFee      string `protobuf:"bytes,9,opt,name=monthly_fee,proto3" json:"monthlyFee"`
	InterestRate    string `protobuf:"bytes,10,opt,name=interest_rate,proto3" json:"interestRate"`
	BranchName      string `protobuf:"bytes,11,opt,name=branch_name,proto3" json:"branchName"`
	BranchCode      string `protobuf:"bytes,12,opt,name=branch_code,proto3" json:"branchCode"`
	OpenedAt        string `protobuf:"bytes,13,opt,name=opened_at,proto3" json:"openedAt"`
	UpdatedAt       string `protobuf:"bytes,14,opt,name=updated_at,proto3" json:"updatedAt"`
}

// Transaction 交易紀錄
type Transaction struct {
	TransactionID             string `protobuf:"bytes,1,opt,name=transaction_id,proto3" json:"transactionId"`
	AccountNumber             string `protobuf:"bytes,2,opt,name=account_number,proto3" json:"accountNumber"`
	Type                      string `protobuf:"bytes,3,opt,name=type,proto3" json:"type"`
	Amount                    string `protobuf:"bytes,4,opt,name=amount,proto3" json:"amount"`
	BalanceAfter              string `protobuf:"bytes,5,opt,name=balance_after,proto3" json:"balanceAfter"`
	Timestamp                 string `protobuf:"bytes,6,opt,name=timestamp,proto3" json:"timestamp"`
	Status                    string `protobuf:"bytes,7,opt,name=status,proto3" json:"status"`
	CounterpartyAccountNumber string `protobuf:"bytes,8,opt,name=counterparty_account_number,proto3" json:"counterpartyAccountNumber,omitempty"`
	Sequence                  uint64 `protobuf:"varint,9,opt,name=sequence,proto3" json:"sequence"`
}

type OpenAccountRequest struct {
	AccountType string `protobuf:"bytes,1,opt,name=account_type,proto3" json:"accountType" validate:"required"`
}

type OpenAccountResponse struct {
	Account *Account `protobuf:"bytes,1,opt,name=account,proto3" json:"account"`
}

type GetAccountRequest struct {
	AccountNumber string `protobuf:"bytes,1,opt,name=account_number,proto3" json:"accountNumber" validate:"required,numeric,len=11"`
}

type GetAccountResponse struct {
	Account *Account `protobuf:"bytes,1,opt,name=account,proto3" json:"account"`
}

type ListAccountsRequest struct{}

type ListAccountsResponse struct {
	Accounts []*Account `protobuf:"bytes,1,rep,name=accounts,proto3" json:"accounts"`
}

type DepositRequest struct {
	AccountNumber string `protobuf:"bytes,1,opt,name=account_number,proto3" json:"accountNumber" validate:"required,numeric,len=11"`
	Amount        string `protobuf:"bytes,2,opt,name=amount,proto3" json:"amount" validate:"required,numeric"`
}

type DepositResponse struct {
	Transaction *Transaction `protobuf:"bytes,1,opt,name=transaction,proto3" json:"transaction"`
}

type WithdrawRequest struct {
	AccountNumber string `protobuf:"bytes,1,opt,name=account_number,proto3" json:"accountNumber" validate:"required,numeric,len=11"`
	Amount        string `protobuf:"bytes,2,opt,name=amount,proto3" json:"amount" validate:"required,numeric"`
}

type WithdrawResponse struct {
	Transaction *Transaction `protobuf:"bytes,1,opt,name=transaction,proto3" json:"transaction"`
}

type TransferRequest struct {
	SourceAccountNumber      string `protobuf:"bytes,1,opt,name=source_account_number,proto3" json:"sourceAccountNumber" validate:"required,numeric,len=11"`
	DestinationAccountNumber string `protobuf:"bytes,2,opt,name=destination_account_number,proto3" json:"destinationAccountNumber" validate:"required,numeric,len=11"`
	Amount                   string `protobuf:"bytes,3,opt,name=amount,proto3" json:"amount" validate:"required,numeric"`
}

// TransferResponse 回傳來源帳戶的 Transfer 紀錄
type TransferResponse struct {
	Transaction *Transaction `protobuf:"bytes,1,opt,name=transaction,proto3" json:"transaction"`
}

type GetTransactionRequest struct {
	TransactionID string `protobuf:"bytes,1,opt,name=transaction_id,proto3" json:"transactionId" validate:"required,startswith=TRANS,len=10"`
}

type GetTransactionResponse struct {
	Transaction *Transaction `protobuf:"bytes,1,opt,name=transaction,proto3" json:"transaction"`
}

type RecentTransactionsRequest struct {
	AccountNumber string `protobuf:"bytes,1,opt,name=account_number,proto3" json:"accountNumber" validate:"required,numeric,len=11"`
}

type RecentTransactionsResponse struct {
	Transactions []*Transaction `protobuf:"bytes,1,rep,name=transactions,proto3" json:"transactions"`
}

// SearchTransactionsRequest 空字串代表不限制，From/To 為 RFC 3339
type SearchTransactionsRequest struct {
	AccountNumber string `protobuf:"bytes,1,opt,name=account_number,proto3" json:"accountNumber,omitempty"`
	Type          string `protobuf:"bytes,2,opt,name=type,proto3" json:"type,omitempty"`
	From          string `protobuf:"bytes,3,opt,name=from,proto3" json:"from,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To            string `protobuf:"bytes,4,opt,name=to,proto3" json:"to,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MinAmount     string `protobuf:"bytes,5,opt,name=min_amount,proto3" json:"minAmount,omitempty" validate:"omitempty,numeric"`
	MaxAmount     string `protobuf:"bytes,6,opt,name=max_amount,proto3" json:"maxAmount,omitempty" validate:"omitempty,numeric"`
	Page          int32  `protobuf:"varint,7,opt,name=page,proto3" json:"page" validate:"gte=0"`
	Size          int32  `protobuf:"varint,8,opt,name=size,proto3" json:"size" validate:"gte=0"`
}

type SearchTransactionsResponse struct {
	Content       []*Transaction `protobuf:"bytes,1,rep,name=content,proto3" json:"content"`
	Page          int32          `protobuf:"varint,2,opt,name=page,proto3" json:"page"`
	Size          int32          `protobuf:"varint,3,opt,name=size,proto3" json:"size"`
	TotalElements int64          `protobuf:"varint,4,opt,name=total_elements,proto3" json:"totalElements"`
	TotalPages    int32          `protobuf:"varint,5,opt,name=total_pages,proto3" json:"totalPages"`
	First         bool           `protobuf:"varint,6,opt,name=first,proto3" json:"first"`
	Last          bool           `protobuf:"varint,7,opt,name=last,proto3" json:"last"`
}
