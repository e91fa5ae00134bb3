package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// loggingInterceptor gives every call a logger carrying the base logger's name,
// a request id and the calling actor, and logs the outcome.
func loggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	baseLogger := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()

		ctx = logger.ToContext(ctx, baseLogger.With(
			"request_id", uuid.NewString(),
			"method", info.FullMethod,
			"actor", common.IncomingActor(ctx).String(),
		))

		resp, err := handler(ctx, req)

		code := status.Code(err)
		if code == codes.OK || code == codes.InvalidArgument {
			logger.InfoKV(ctx, "Request handled", "code", code.String(), "elapsed", time.Since(started).String())
		} else {
			logger.WarnKV(ctx, "Request finished with error", "code", code.String(), "error", err)
		}

		return resp, err
	}
}
