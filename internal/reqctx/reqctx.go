package reqctx

import "context"

type ctxKey string

const keyRequestID ctxKey = "reqctx.requestID"

// WithRequestID pins a request id on the context so one id survives a
// CSRF replay of the same logical request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)

	return v, ok && v != ""
}
