package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sanad-exam-service/internal/domain"
	"sanad-exam-service/internal/grading"
)

// NewGradeCmd recomputes an attempt's score offline from its frozen
// snapshot, for spot-checking stored totals against the grading engine.
func NewGradeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Recompute an attempt's score from an exported JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var attempt domain.Attempt
			if err := json.Unmarshal(data, &attempt); err != nil {
				return fmt.Errorf("decode attempt: %w", err)
			}

			summary := grading.Aggregate(attempt.TestData.Questions, attempt.Answers, nil, nil)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "attempt: %s (%s)\n", attempt.ID, attempt.StudentName)
			fmt.Fprintf(out, "state: %s, modifications: %d\n", attempt.State(), len(attempt.Modifications))
			fmt.Fprintf(out, "stored:     %.1f/%.1f (%.1f%%) passed=%v\n",
				attempt.TotalEarnedPoints, attempt.TotalPossiblePoints, attempt.Percentage, attempt.IsPassed)
			fmt.Fprintf(out, "recomputed: %.1f/%.1f (%.1f%%) passed=%v correct=%d\n",
				summary.TotalEarnedPoints, summary.TotalPossiblePoints, summary.Percentage, summary.IsPassed, summary.CorrectCount)
			for _, q := range summary.PerQuestion {
				fmt.Fprintf(out, "  %-12s %-20s earned=%.1f/%.1f correct=%v\n",
					q.QuestionID, q.Type, q.Earned, q.Possible, q.Correct)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to attempt JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
