package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"InterviewBot/internal/session"
	"InterviewBot/internal/storage"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a stored interview session",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the raw session record as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	durable, err := storage.Open(v.GetString("store_dsn"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer durable.Close()

	sess, err := durable.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return fmt.Errorf("session %s not found", args[0])
	}

	if showJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}
	printSession(cmd.OutOrStdout(), sess)
	return nil
}

func printSession(w io.Writer, s *session.Session) {
	fmt.Fprintf(w, "Session:   %s\n", s.ID)
	fmt.Fprintf(w, "Status:    %s\n", s.Status)
	fmt.Fprintf(w, "Started:   %s\n", s.StartedAt.Format(time.RFC3339))
	if s.EndedAt != nil {
		fmt.Fprintf(w, "Ended:     %s (%ds)\n", s.EndedAt.Format(time.RFC3339), s.Duration())
	}
	fmt.Fprintf(w, "Questions: %d\n\n", s.QuestionCount)

	for i, turn := range s.Transcript {
		if i == 0 && turn.Role == session.RoleSystem {
			// the priming turn embeds both documents
			fmt.Fprintf(w, "[system] priming instruction (%d characters)\n\n", len(turn.Content))
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n\n", turn.Role, strings.TrimSpace(turn.Content))
	}

	if s.HasFeedback() {
		fmt.Fprintf(w, "=== Feedback ===\n%s\n", strings.TrimSpace(s.Feedback))
	}
}
