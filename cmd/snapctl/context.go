package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(ctxKey{}).(*app)
	if !ok {
		return nil, errors.New("snapctl not initialized")
	}
	return a, nil
}
