package cmd

import (
	"fmt"

	"github.com/paycycle/backend/internal/types"
	"github.com/paycycle/backend/pkg/models"
	"github.com/paycycle/backend/pkg/processor"
	"github.com/spf13/cobra"
)

type periodOptions struct {
	Actor    string
	Approver string
	Force    bool
	Unlock   bool
}

func newPeriodCmd(a *app) *cobra.Command {
	var opts periodOptions

	periodCmd := &cobra.Command{
		Use:   "period",
		Short: "Manage payroll periods. Periods are addressed by month, e.g. 2024-03.",
	}

	createCmd := &cobra.Command{
		Use:   "create YYYY-MM",
		Short: "Create the period for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := types.ParseMonth(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", processor.ErrInvalidPeriod, err)
			}

			period, err := a.processor.CreatePeriod(cmd.Context(), month.Year(), month.Month())
			if err != nil {
				return err
			}
			return render(cmd, period)
		},
	}

	processCmd := &cobra.Command{
		Use:   "process YYYY-MM",
		Short: "Compute the payroll entries of all eligible employees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := a.period(cmd, args[0])
			if err != nil {
				return err
			}

			if opts.Unlock {
				if period, err = a.processor.Unlock(cmd.Context(), period.ID); err != nil {
					return err
				}
			}

			summary, err := a.processor.Process(cmd.Context(), period.ID, processor.ProcessOptions{
				Actor: a.actor(opts.Actor),
				Force: opts.Force || opts.Unlock,
			})
			if renderErr := render(cmd, summary); renderErr != nil && err == nil {
				err = renderErr
			}
			return err
		},
	}
	processCmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Reprocess a period that has been processed before")
	processCmd.Flags().BoolVar(&opts.Unlock, "unlock", false, "Release a run that did not finish, then reprocess the period")

	validateCmd := &cobra.Command{
		Use:   "validate YYYY-MM",
		Short: "List the errors that block finalization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := a.period(cmd, args[0])
			if err != nil {
				return err
			}

			blockers, err := a.processor.Validate(cmd.Context(), period.ID)
			if err != nil {
				return err
			}
			return render(cmd, map[string]any{"period": period.Key(), "errors": blockers})
		},
	}

	finalizeCmd := &cobra.Command{
		Use:   "finalize YYYY-MM",
		Short: "Finalize a processed period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := a.period(cmd, args[0])
			if err != nil {
				return err
			}

			period, err = a.processor.Finalize(cmd.Context(), period.ID, a.actor(opts.Actor))
			if err != nil {
				return err
			}
			return render(cmd, period)
		},
	}

	approveCmd := &cobra.Command{
		Use:   "approve YYYY-MM",
		Short: "Approve a finalized period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := a.period(cmd, args[0])
			if err != nil {
				return err
			}

			period, err = a.processor.Approve(cmd.Context(), period.ID, opts.Approver)
			if err != nil {
				return err
			}
			return render(cmd, period)
		},
	}
	approveCmd.Flags().StringVar(&opts.Approver, "approver", "", "Person approving the period")
	_ = approveCmd.MarkFlagRequired("approver")

	deleteCmd := &cobra.Command{
		Use:   "delete YYYY-MM",
		Short: "Delete a period that has not been finalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := a.period(cmd, args[0])
			if err != nil {
				return err
			}
			return a.processor.Delete(cmd.Context(), period.ID)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [YYYY-MM]",
		Short: "Show all periods or the entries of one period",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				periods, err := a.store.Periods(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd, periods)
			}

			period, err := a.period(cmd, args[0])
			if err != nil {
				return err
			}

			entries, err := a.store.Entries(cmd.Context(), period.ID)
			if err != nil {
				return err
			}

			return render(cmd, struct {
				Period  models.Period         `json:"period"`
				Entries []models.PayrollEntry `json:"entries"`
			}{period, entries})
		},
	}

	for _, c := range []*cobra.Command{processCmd, finalizeCmd} {
		c.Flags().StringVar(&opts.Actor, "actor", "", "Actor recorded on the period, defaults to PAYROLL_ACTOR")
	}

	periodCmd.AddCommand(createCmd, processCmd, validateCmd, finalizeCmd, approveCmd, deleteCmd, showCmd)
	return periodCmd
}

// period looks up the period of the month given as argument.
func (a *app) period(cmd *cobra.Command, arg string) (models.Period, error) {
	month, err := types.ParseMonth(arg)
	if err != nil {
		return models.Period{}, fmt.Errorf("%w: %w", processor.ErrInvalidPeriod, err)
	}

	return a.store.PeriodByMonth(cmd.Context(), month)
}

func (a *app) actor(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Payroll.Actor
}
