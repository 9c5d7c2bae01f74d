package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/viva/internal/coverage"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored interview sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		subject, _ := cmd.Flags().GetString("subject")
		module, _ := cmd.Flags().GetString("module")
		status, _ := cmd.Flags().GetString("status")

		st, closeFn, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		list, err := st.List(cmd.Context(), store.ListFilter{
			SubjectID: subject,
			ModuleID:  module,
			Status:    strings.ToUpper(status),
			Limit:     limit,
		})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		fmt.Printf("%-36s  %-12s  %-20s  %-13s  %-11s  %5s  %s\n",
			"ID", "Subject", "Module", "Kind", "Status", "Asked", "Updated")
		fmt.Println(strings.Repeat("─", 120))
		for _, s := range list {
			fmt.Printf("%-36s  %-12s  %-20s  %-13s  %-11s  %5d  %s\n",
				s.ID,
				truncate(s.SubjectID, 12),
				truncate(s.ModuleID, 20),
				s.Kind,
				s.Status,
				s.QuestionsAsked,
				s.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\n%d sessions\n", len(list))
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's transcript, coverage and scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeFn, err := openSessions(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		s, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSession(s)

		if transcript, _ := cmd.Flags().GetBool("transcript"); transcript {
			sep := strings.Repeat("─", 60)
			fmt.Println()
			fmt.Println(sep)
			fmt.Println("TRANSCRIPT")
			fmt.Println(sep)
			for _, line := range s.Transcript(0) {
				fmt.Println(line)
			}
		}
		return nil
	},
}

var sessionsEventsCmd = &cobra.Command{
	Use:   "events <id>",
	Short: "Show the lifecycle events recorded for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openEventRepo(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		evs, err := repo.QuerySessionEvents(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("query session events: %w", err)
		}
		if len(evs) == 0 {
			fmt.Printf("No events for session %s.\n", args[0])
			return nil
		}
		for _, e := range evs {
			fmt.Printf("%-6d  %-19s  %-10s  q=%-3d  %s\n",
				e.Sequence, e.Timestamp.Local().Format(timeLayout), e.Action, e.QuestionsAsked, e.Detail)
		}
		return nil
	},
}

// openSessions opens the configured session backend.
func openSessions(cmd *cobra.Command) (*session.Store, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	b, err := store.OpenBackend(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return session.NewStore(b.Sessions), b.Close, nil
}

func printSession(s *session.Session) {
	p := session.BuildProgress(s)

	fmt.Printf("Session:   %s\n", s.ID)
	fmt.Printf("Subject:   %s\n", s.SubjectID)
	fmt.Printf("Module:    %s (%s)\n", s.Title, s.ModuleID)
	fmt.Printf("Kind:      %s\n", s.Kind)
	fmt.Printf("Status:    %s\n", s.Status)
	if s.CompletionReason != "" {
		fmt.Printf("Reason:    %s\n", s.CompletionReason)
	}
	if s.SupersedesID != "" {
		fmt.Printf("Replaces:  %s\n", s.SupersedesID)
	}
	fmt.Printf("Answers:   %d\n", s.QuestionsAsked)
	fmt.Printf("Coverage:  %d/%d required topics covered, average %.0f\n",
		p.Topics.Required-p.Topics.RequiredRemaining, p.Topics.Required, p.Topics.AverageCoverage)

	fmt.Println()
	fmt.Printf("%-24s  %-8s  %6s  %s\n", "Topic", "Required", "Score", "Status")
	fmt.Println(strings.Repeat("─", 64))
	for _, t := range s.Topics {
		req := ""
		if t.IsRequired {
			req = "yes"
		}
		fmt.Printf("%-24s  %-8s  %6.0f  %s\n", truncate(t.Name, 24), req, t.CoverageScore, statusLabel(t.Status))
	}

	if a := s.Certification; a != nil {
		fmt.Println()
		fmt.Printf("Certification: %s  overall %.1f (pass %.0f)  difficulty %s\n",
			a.Status, a.OverallScore, a.PassingScore, a.Difficulty)
		for i, sc := range a.Scenarios {
			fmt.Printf("  %d. %-40s  %-11s  %d answers  running %.1f\n",
				i+1, truncate(sc.Title, 40), sc.Status, sc.QuestionCount, sc.RunningScore)
		}
	}
}

func statusLabel(s coverage.Status) string {
	switch s {
	case coverage.ThoroughlyCovered:
		return "✓ " + string(s)
	case coverage.BrieflyDiscussed:
		return "~ " + string(s)
	default:
		return "  " + string(s)
	}
}

func init() {
	sessionsListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	sessionsListCmd.Flags().String("subject", "", "Filter by subject ID")
	sessionsListCmd.Flags().String("module", "", "Filter by module ID")
	sessionsListCmd.Flags().String("status", "", "Filter by status (in_progress, completed)")
	sessionsShowCmd.Flags().BoolP("transcript", "t", false, "Print the full transcript")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsEventsCmd)
}
