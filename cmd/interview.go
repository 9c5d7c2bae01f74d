package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/abhisek/viva/internal/engine"
	"github.com/abhisek/viva/internal/session"
	"github.com/abhisek/viva/internal/store"
)

const endCommand = "/end"

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interview in the terminal",
	Long: "Runs an interview or certification attempt in the terminal. Type " + endCommand +
		" to stop early. Sessions are kept in memory unless --store is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if backend, _ := cmd.Flags().GetString("store"); backend != "" {
			cfg.Store.Backend = backend
		}
		if cfg.Log.Mode == "prod" {
			cfg.Log.Mode = "nop"
		}

		log := newLogger(cfg.Log.Mode)
		defer log.Sync()

		rt, err := buildRuntime(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		moduleID, _ := cmd.Flags().GetString("module")
		if moduleID == "" {
			moduleID, err = pickModule(rt)
			if err != nil {
				return err
			}
		}
		subject, _ := cmd.Flags().GetString("subject")
		kind, _ := cmd.Flags().GetString("kind")
		sessionID, _ := cmd.Flags().GetString("session")

		started, err := rt.engine.Start(ctx, engine.StartRequest{
			SessionID: sessionID,
			SubjectID: subject,
			ModuleID:  moduleID,
			Kind:      session.Kind(kind),
		})
		if err != nil {
			return err
		}
		if !started.Created {
			fmt.Println("Resuming session", started.SessionID)
		}

		question := started.Question
		for question != nil {
			fmt.Printf("\n%s\n\n", question.Text)

			prompt := promptui.Prompt{Label: "Answer"}
			text, err := prompt.Run()
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || strings.TrimSpace(text) == endCommand {
				break
			}
			if err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}

			turn, err := rt.engine.Submit(ctx, engine.SubmitRequest{SessionID: started.SessionID, Text: text})
			if err != nil {
				return err
			}
			if turn.Score != nil {
				fmt.Printf("  score %.1f/10  %s\n", turn.Score.Score, turn.Score.Feedback)
			}
			question = turn.Next
		}

		if _, err := rt.engine.ForceEnd(ctx, started.SessionID); err != nil {
			return err
		}
		s, err := rt.engine.Session(ctx, started.SessionID)
		if err != nil {
			return err
		}
		fmt.Println()
		printSession(s)
		return nil
	},
}

func pickModule(rt *runtime) (string, error) {
	mods := rt.taxonomy.Modules()
	items := make([]string, len(mods))
	for i, m := range mods {
		items[i] = fmt.Sprintf("%s  (%s)", m.Title, m.ID)
	}
	sel := promptui.Select{Label: "Select module", Items: items}
	idx, _, err := sel.Run()
	if err != nil {
		return "", fmt.Errorf("module selection: %w", err)
	}
	return mods[idx].ID, nil
}

func init() {
	interviewCmd.Flags().StringP("module", "m", "", "Module ID (prompted when empty)")
	interviewCmd.Flags().StringP("subject", "s", "local", "Subject (learner) ID")
	interviewCmd.Flags().StringP("kind", "k", string(session.KindInterview), "interview or certification")
	interviewCmd.Flags().String("session", "", "Resume or create a session with this ID")
	interviewCmd.Flags().String("store", store.BackendMemory, "Session backend: sqlite, memory, redis or mongo")
}
