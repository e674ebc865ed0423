package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/me/hackloud/internal/assessment"
	"github.com/me/hackloud/pkg/model"
	"github.com/spf13/cobra"
)

// notifier prints form messages: success to stdout, errors to stderr.
type notifier struct {
	out, err io.Writer
}

func (n notifier) Success(msg string) { fmt.Fprintln(n.out, msg) }
func (n notifier) Error(msg string)   { fmt.Fprintln(n.err, msg) }

func newAssessCmd() *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "assess <1-5>",
		Short: "Rate the service",
		Long: "Rate the service from 1 (very dissatisfied) to 5 (excellent), with an\n" +
			"optional comment.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			vote, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("rating must be a number from %d to %d", model.MinVote, model.MaxVote)
			}
			tok, err := requireSession(ctx)
			if err != nil {
				return err
			}

			form := &assessment.Form{Vote: vote, Comment: comment}
			form.OnCreated = func() {
				logger.Debug("assessment created", "vote", vote)
			}
			n := notifier{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
			if err := form.Submit(ctx, client, tok, n); err != nil {
				return describe("assess", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Optional comment")
	return cmd
}

func newAssessmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessments",
		Short: "List or moderate service ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := client.ListAssessments(cmd.Context())
			if err != nil {
				return describe("list assessments", err)
			}
			return render(cmd.OutOrStdout(), list, func(w io.Writer) error {
				if len(list) == 0 {
					fmt.Fprintln(w, "No assessments yet.")
					return nil
				}
				fmt.Fprintf(w, "Average: %.1f from %d ratings\n\n", model.AverageVote(list), len(list))
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tRATING\tUSER\tDATE\tCOMMENT")
				for _, a := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						a.ID, assessment.Stars(a.Vote), a.Username, a.CreatedAt.Format(time.DateOnly), a.Comment)
				}
				return tw.Flush()
			})
		},
	}

	var yes bool
	rm := &cobra.Command{
		Use:   "rm <assessment_id>",
		Short: "Delete an assessment (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := requireAdmin(ctx)
			if err != nil {
				return err
			}
			if !confirmDelete(cmd, yes, "assessment "+args[0]) {
				return nil
			}
			if err := client.DeleteAssessment(ctx, args[0], tok); err != nil {
				return describe("delete assessment", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assessment %s deleted\n", args[0])
			return nil
		},
	}

	rm.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(rm)
	return cmd
}
