package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"casework-backend/internal/client"
	"casework-backend/internal/merge"
	"casework-backend/internal/validate"
)

func newCasesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Inspect and merge cases",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show CASE_ID",
			Short: "Print a case",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, _, err := flags.connect()
				if err != nil {
					return err
				}
				kase, err := c.GetCase(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s\n", kase.ID, kase.DisplayName())
				if kase.Retired() {
					fmt.Fprintf(out, "merged into %s\n", kase.MergedIntoID)
				}
				rec, err := merge.ToRecord(kase)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, f := range merge.CaseFields {
					if v := rec[f.Name]; merge.HasValue(v) {
						fmt.Fprintf(tw, "%s\t%s\n", f.Name, displayField(f, v))
					}
				}
				return tw.Flush()
			},
		},
		newMergePreviewCmd(flags),
		newMergeCmd(flags),
	)
	return cmd
}

func displayField(f merge.Field, v any) string {
	if items, ok := v.([]any); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, merge.DisplayValue(f.Name, item))
		}
		return strings.Join(parts, "; ")
	}
	return merge.DisplayValue(f.Name, v)
}

func newMergePreviewCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "merge-preview KEEP_ID OTHER_ID",
		Short: "Show how two cases differ",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := flags.connect()
			if err != nil {
				return err
			}
			s, err := c.NewMergeSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.Load(cmd.Context(), args[1]); err != nil {
				return err
			}
			return printDiffs(cmd.OutOrStdout(), s)
		},
	}
}

func newMergeCmd(flags *globalFlags) *cobra.Command {
	var (
		switchSides bool
		picks       []string
	)
	cmd := &cobra.Command{
		Use:   "merge KEEP_ID OTHER_ID",
		Short: "Merge OTHER_ID into KEEP_ID",
		Long: `Merges two cases. Every differing field defaults to the kept case when it
has a value and to the other case otherwise. Override single entries with
--pick PATH=left|right, where PATH is a path printed by merge-preview and
left is KEEP_ID as given on the command line.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := flags.connect()
			if err != nil {
				return err
			}
			s, err := c.NewMergeSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := s.Load(cmd.Context(), args[1]); err != nil {
				return err
			}
			if switchSides {
				if err := s.Switch(); err != nil {
					return err
				}
			}
			for _, pick := range picks {
				path, sideName, found := strings.Cut(pick, "=")
				if !found {
					return fmt.Errorf("--pick %q: expected PATH=left|right", pick)
				}
				var side merge.Side
				if err := side.UnmarshalText([]byte(sideName)); err != nil {
					return fmt.Errorf("--pick %q: %w", pick, err)
				}
				if err := s.SelectPath(path, side); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if err := printDiffs(out, s); err != nil {
				return err
			}
			kase, err := s.Submit(cmd.Context())
			if err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(out, "merged %s into %s (%s)\n", s.RemovedID(), kase.ID, kase.DisplayName())
			return nil
		},
	}
	cmd.Flags().BoolVar(&switchSides, "switch", false, "Keep OTHER_ID instead of KEEP_ID")
	cmd.Flags().StringArrayVar(&picks, "pick", nil, "Choose a side for one entry: PATH=left|right")
	return cmd
}

func printDiffs(out io.Writer, s *client.MergeSession) error {
	if !s.HasConflicts() {
		fmt.Fprintln(out, "no conflicting fields")
	}
	diffs := s.Diffs()
	if len(diffs) == 0 {
		return nil
	}
	fmt.Fprintf(out, "keeping %s, removing %s\n", s.KeptID(), s.RemovedID())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLEFT\tRIGHT\tCHOSEN")
	for _, d := range diffs {
		side, _ := s.Selection(d.Key)
		marker := ""
		if d.Conflicting() {
			marker = " *"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n", d.Path, marker, orDash(d.LeftDisplay), orDash(d.RightDisplay), side)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// describeFailure spells out validation and backend messages.
func describeFailure(err error) error {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return fmt.Errorf("invalid input: %w", verrs)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && len(apiErr.Result.Errors) > 0 {
		return fmt.Errorf("%w: %v", apiErr, validate.Errors(apiErr.Result.Errors))
	}
	return err
}
