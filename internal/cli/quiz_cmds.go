package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"vidya-quiz-service/internal/config"
	"vidya-quiz-service/internal/domain"
	pgstore "vidya-quiz-service/internal/infra/postgres"
	"vidya-quiz-service/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewGenerateCmd makes sure a day's quiz exists, producing it from the configured sources.
func NewGenerateCmd(configPath *string) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Produce and store the quiz for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logger)
			defer log.Sync()

			deps, err := buildComponents(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			resolved, err := domain.ResolveDate(date, deps.engine.Now())
			if err != nil {
				return err
			}
			quiz, err := deps.engine.Quizzes().QuizForDate(cmd.Context(), resolved)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d questions, by %s)\n",
				quiz.Date, quiz.Subject, len(quiz.Questions), quiz.CreatedBy)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", domain.Today, "quiz date (YYYY-MM-DD or today)")
	return cmd
}

// NewLeaderboardCmd prints a day's ranked leaderboard.
func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var (
		date string
		top  int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logger)
			defer log.Sync()

			deps, err := buildComponents(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			resolved, err := domain.ResolveDate(date, deps.engine.Now())
			if err != nil {
				return err
			}
			view, err := deps.engine.LeaderboardView(cmd.Context(), resolved, top)
			if err != nil {
				return err
			}
			return printLeaderboard(cmd, view)
		},
	}
	cmd.Flags().StringVar(&date, "date", domain.Today, "leaderboard date (YYYY-MM-DD or today)")
	cmd.Flags().IntVar(&top, "top", 0, "rows to show (0 uses quiz.leaderboard_top)")
	return cmd
}

func printLeaderboard(cmd *cobra.Command, view domain.LeaderboardView) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Leaderboard %s (%d attempts)\n", view.Date, view.Count)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tSUBMITTED")
	for _, entry := range view.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%s\n",
			entry.Rank, entry.StudentName, entry.Score, entry.Total,
			entry.SubmittedAt.Format("15:04:05"))
	}
	return tw.Flush()
}

// NewImportCmd loads an authored quiz from a JSON file into the daily_quizzes table.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an authored quiz into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logger)
			defer log.Sync()

			quiz, err := readQuizFile(file)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := pgstore.NewQuizLoader(pool).SaveQuiz(cmd.Context(), quiz); err != nil {
				return err
			}
			log.Info("quiz imported", zap.String("date", quiz.Date), zap.String("subject", quiz.Subject))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a quiz JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readQuizFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuiz, err)
	}
	if quiz.CreatedBy == "" {
		quiz.CreatedBy = "admin"
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}
