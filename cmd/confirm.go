package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	apitriage "github.com/kilianp07/crisistriage/api/triage"
)

var confirmReq apitriage.ConfirmRequest

var confirmCmd = &cobra.Command{
	Use:   "confirm <request-id>",
	Short: "Confirm or cancel a triaged request",
	Long: "Dispatch the selected resource (or the top recommendation when none is given). " +
		"Pass --reject to cancel the request instead.",
	Args: cobra.ExactArgs(1),
	RunE: runConfirm,
}

var confirmReject bool

func init() {
	f := confirmCmd.Flags()
	f.StringVar(&confirmReq.SelectedResourceID, "resource", "", "resource to dispatch")
	f.StringVar(&confirmReq.DispatcherID, "dispatcher", "", "dispatcher identifier")
	f.StringVar(&confirmReq.DispatcherNotes, "notes", "", "dispatcher notes")
	f.StringVar(&confirmReq.OverrideReason, "reason", "", "reason for choosing a resource other than the top match")
	f.BoolVar(&confirmReject, "reject", false, "cancel the request")
	_ = confirmCmd.MarkFlagRequired("dispatcher")
	rootCmd.AddCommand(confirmCmd)
}

func runConfirm(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	req := confirmReq
	req.RequestID = args[0]
	req.Confirmed = !confirmReject
	resp, err := newAPIClient(serverURL, clientAuth).Confirm(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
