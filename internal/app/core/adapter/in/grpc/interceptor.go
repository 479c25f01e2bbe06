package grpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	pb "github.com/JoeShih716/go-bank-ledger/proto"
)

type ctxKey int

const (
	customerKey ctxKey = iota
	requestIDKey
)

// CustomerFromContext 取得驗證後的客戶 ID
func CustomerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(customerKey).(string)
	return id, ok && id != ""
}

// RequestIDFromContext 取得請求編號
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// RequestIDInterceptor 沿用呼叫端的 x-request-id，沒有就產生一個，並放回回應 header
func RequestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := firstMetadata(ctx, pb.RequestIDMetadataKey)
	if id == "" {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(pb.RequestIDMetadataKey, id))
	return handler(context.WithValue(ctx, requestIDKey, id), req)
}

// AuthInterceptor 帳務服務的每個方法都需要 x-customer-id
// 其他服務 (例如 health check) 直接放行
func AuthInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+pb.LedgerService_ServiceName+"/") {
		return handler(ctx, req)
	}
	customerID := firstMetadata(ctx, pb.CustomerIDMetadataKey)
	if customerID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing "+pb.CustomerIDMetadataKey)
	}
	return handler(context.WithValue(ctx, customerKey, customerID), req)
}

// LoggingInterceptor 記錄每個請求的方法、耗時與狀態碼
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		attrs := []any{
			"method", info.FullMethod,
			"request_id", RequestIDFromContext(ctx),
			"code", code.String(),
			"duration", time.Since(start),
		}
		switch code {
		case codes.OK:
			logger.Debug("rpc", attrs...)
		case codes.Internal, codes.Unavailable, codes.Unknown:
			logger.Error("rpc", append(attrs, "error", err)...)
		default:
			logger.Info("rpc", append(attrs, "error", err)...)
		}
		return resp, err
	}
}

// RecoveryInterceptor panic 轉成 Internal，不讓單一請求拖垮整個服務
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("rpc panic", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
