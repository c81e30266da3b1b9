package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// checkReport is printed by `check`.
type checkReport struct {
	Dataset      *models.DatasetInfo `json:"dataset,omitempty"`
	DatasetError string              `json:"dataset_error,omitempty"`
	LLM          *llm.CheckResult    `json:"llm"`
}

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the datasource and LLM provider are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			report := checkReport{}
			info, err := a.chat.DescribeDataset(ctx)
			switch {
			case err == nil:
				report.Dataset = info
			case errors.Is(err, apperrors.ErrNoDataset):
				report.DatasetError = fmt.Sprintf("no dataset: table %q not found", opts.cfg.Datasource.Table)
			default:
				report.DatasetError = err.Error()
			}

			report.LLM = llm.CheckConnection(ctx, a.client, 0)
			report.LLM.Provider = opts.cfg.LLM.Provider

			if err := writeJSON(cmd.OutOrStdout(), report, true); err != nil {
				return err
			}
			if report.DatasetError != "" || !report.LLM.Success {
				return fmt.Errorf("check failed")
			}
			return nil
		},
	}
}
