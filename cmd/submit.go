package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/crisistriage/core/model"
)

var (
	submitSource string
	submitPhone  string
)

var submitCmd = &cobra.Command{
	Use:   "submit <message>",
	Short: "Submit an emergency message for triage",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitSource, "source", string(model.SourceOther), "message channel (sms, social_media, chat, phone, email, other)")
	submitCmd.Flags().StringVar(&submitPhone, "phone", "", "caller phone number")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	resp, err := newAPIClient(serverURL, clientAuth).Submit(ctx, model.EmergencyMessage{
		Message:     strings.Join(args, " "),
		Source:      model.MessageSource(submitSource),
		PhoneNumber: submitPhone,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
