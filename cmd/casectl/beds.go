package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"casework-backend/internal/client"
)

func newBedsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "beds",
		Short: "Work the bed table of a site",
	}
	cmd.AddCommand(
		newBedsListCmd(flags),
		newCheckInCmd(flags),
		newCheckOutCmd(flags),
		newArchiveCmd(flags),
	)
	return cmd
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// tracker connects and loads the bed table of the site named by raw.
func tracker(cmd *cobra.Command, flags *globalFlags, raw string) (*client.BedTracker, error) {
	siteID, err := parseID("site id", raw)
	if err != nil {
		return nil, err
	}
	c, loc, err := flags.connect()
	if err != nil {
		return nil, err
	}
	t := c.NewBedTracker(siteID, loc)
	if err := t.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return t, nil
}

func printRows(cmd *cobra.Command, t *client.BedTracker) error {
	rows := t.Rows()
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "no beds")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOM\tBED\tSTATUS\tCASE\tCHECKOUT\tACTIONS")
	for _, r := range rows {
		caseName := ""
		if r.Bed.ActiveCheckIn != nil {
			caseName = r.Bed.ActiveCheckIn.CaseName
		}
		actions := make([]string, len(r.Actions))
		for i, a := range r.Actions {
			actions[i] = string(a)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Bed.ID, orDash(r.Bed.Room), r.Bed.Name, r.Bed.Status,
			orDash(caseName), orDash(r.ScheduleLabel()), orDash(strings.Join(actions, ",")))
	}
	return tw.Flush()
}

func newBedsListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list SITE_ID",
		Short: "List the beds of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker(cmd, flags, args[0])
			if err != nil {
				return err
			}
			return printRows(cmd, t)
		},
	}
}

func newCheckInCmd(flags *globalFlags) *cobra.Command {
	var req client.CheckInRequest
	var bedID string
	cmd := &cobra.Command{
		Use:   "check-in SITE_ID",
		Short: "Check a case into an available bed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("bed id", bedID)
			if err != nil {
				return err
			}
			req.BedID = id
			t, err := tracker(cmd, flags, args[0])
			if err != nil {
				return err
			}
			ci, err := t.CheckIn(cmd.Context(), req)
			if err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %s into bed %s (check-in %s)\n", ci.CaseName, ci.BedName, ci.ID)
			return printRows(cmd, t)
		},
	}
	cmd.Flags().StringVar(&req.CaseID, "case", "", "Case id")
	cmd.Flags().StringVar(&bedID, "bed", "", "Bed id")
	cmd.Flags().StringVar(&req.CheckInDate, "date", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.ScheduledCheckoutDate, "checkout", "", "Scheduled checkout date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Notes")
	return cmd
}

func newCheckOutCmd(flags *globalFlags) *cobra.Command {
	var req client.CheckOutRequest
	cmd := &cobra.Command{
		Use:   "check-out SITE_ID",
		Short: "Check a case out and free the bed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tracker(cmd, flags, args[0])
			if err != nil {
				return err
			}
			stay, err := t.CheckOut(cmd.Context(), req)
			if err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked out %s\n", stay.CaseName)
			return printRows(cmd, t)
		},
	}
	cmd.Flags().StringVar(&req.CheckInID, "check-in", "", "Check-in id")
	cmd.Flags().StringVar(&req.CheckOutDate, "date", "", "Checkout date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.CheckOutNotes, "notes", "", "Checkout notes")
	return cmd
}

func newArchiveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive SITE_ID BED_ID",
		Short: "Archive a bed so it no longer shows in the table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bedID, err := parseID("bed id", args[1])
			if err != nil {
				return err
			}
			t, err := tracker(cmd, flags, args[0])
			if err != nil {
				return err
			}
			bed, err := t.Archive(cmd.Context(), bedID)
			if err != nil {
				return describeFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived bed %s\n", bed.Name)
			return printRows(cmd, t)
		},
	}
}
