// Package cli provides the command-line interface for the pricewatch application.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/law-makers/pricewatch/internal/app"
)

// ctxKey is used for storing app context in cobra commands
type ctxKey string

const appKey ctxKey = "app"

// SetApp stores the Application in the command's context
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetAppFromCmd retrieves the Application stored on cmd, or nil
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(appKey).(*app.Application)
	return a
}

// mustApp returns the Application for a running command
func mustApp(cmd *cobra.Command) *app.Application {
	a := GetAppFromCmd(cmd)
	if a == nil {
		panic("cli: application not initialized for " + cmd.CommandPath())
	}
	return a
}
