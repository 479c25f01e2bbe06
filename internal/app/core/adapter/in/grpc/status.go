package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// errorCodes domain 錯誤對應的 gRPC 狀態碼 (依序比對)
var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{domain.ErrAccountNotFound, codes.NotFound},
	{domain.ErrTransactionNotFound, codes.NotFound},
	{domain.ErrForbidden, codes.PermissionDenied},
	{domain.ErrInvalidAmount, codes.InvalidArgument},
	{domain.ErrSameAccountTransfer, codes.InvalidArgument},
	{domain.ErrInvalidAccountType, codes.InvalidArgument},
	{domain.ErrInsufficientFunds, codes.FailedPrecondition},
	{domain.ErrLimitExceeded, codes.FailedPrecondition},
	{domain.ErrDuplicateAccountNumber, codes.AlreadyExists},
	{domain.ErrDuplicateTransactionID, codes.AlreadyExists},
	{domain.ErrAllocationExhausted, codes.ResourceExhausted},
	{domain.ErrContention, codes.Aborted},
	{domain.ErrVersionConflict, codes.Aborted},
	{domain.ErrStorageFailure, codes.Unavailable},
	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// toStatus 將 domain 錯誤轉成 gRPC status，未知錯誤為 Internal
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}
