package handlers_test

import (
	"context"

	"github.com/go-chi/chi/v5"
)

// setChiURLParam adds a chi URL parameter to the context
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.RouteContext(ctx)
	if rctx == nil {
		rctx = chi.NewRouteContext()
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	rctx.URLParams.Add(key, value)
	return ctx
}
