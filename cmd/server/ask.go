package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(cfgFile *string) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one chat message and print the JSON response",
		Example: `  partnerdesk ask "List all partners"
  partnerdesk ask --config ./partnerdesk.yaml "How many packages are active?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}

			convLogCfg := cfg.ConversationLog
			convLogCfg.Enabled = audit && convLogCfg.Enabled

			a, err := newApp(cmd.Context(), cfg, convLogCfg)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.service.HandleChatMessage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "write this exchange to the conversation log")
	return cmd
}
