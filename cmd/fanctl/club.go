package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fanplatform.dk/internal/models"
)

func settingsCmd(a *app) *cobra.Command {
	clubKey := func() string { return strconv.FormatInt(a.cfg.ClubID, 10) }

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the club settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.coord.ClubSettings(cmd.Context(), clubKey())
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), s)
			return nil
		},
	}

	var (
		name, primary, secondary, visibility string
		deadline, reminder                   int
		autoReminders                        bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update club settings; only the flags given are changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd models.ClubSettingsUpdate
			var rsvp models.RSVPDefaultsUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = &name
			}
			if flags.Changed("primary-color") {
				upd.PrimaryColor = &primary
			}
			if flags.Changed("secondary-color") {
				upd.SecondaryColor = &secondary
			}
			if flags.Changed("deadline-hours") {
				rsvp.DeadlineHours = &deadline
			}
			if flags.Changed("visibility") {
				rsvp.Visibility = &visibility
			}
			if flags.Changed("auto-reminders") {
				rsvp.AutoReminders = &autoReminders
			}
			if flags.Changed("reminder-hours") {
				rsvp.ReminderHours = &reminder
			}
			if rsvp != (models.RSVPDefaultsUpdate{}) {
				upd.RSVPDefaults = &rsvp
			}

			if _, err := a.coord.ClubSettings(cmd.Context(), clubKey()); err != nil {
				return err
			}
			s, err := a.coord.UpdateClubSettings(cmd.Context(), clubKey(), upd)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), *s)
			return nil
		},
	}
	set.Flags().StringVar(&name, "name", "", "club name")
	set.Flags().StringVar(&primary, "primary-color", "", "primary color, e.g. #1d4ed8")
	set.Flags().StringVar(&secondary, "secondary-color", "", "secondary color")
	set.Flags().IntVar(&deadline, "deadline-hours", 0, "RSVP deadline before start, in hours")
	set.Flags().StringVar(&visibility, "visibility", "", "RSVP visibility: members or public")
	set.Flags().BoolVar(&autoReminders, "auto-reminders", false, "send RSVP reminders")
	set.Flags().IntVar(&reminder, "reminder-hours", 0, "reminder before start, in hours")

	logo := &cobra.Command{
		Use:   "logo <image>",
		Short: "Upload the club logo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := uploadFile(args[0], func(name string, r io.Reader) (string, error) {
				return a.client.UploadClubLogo(cmd.Context(), clubKey(), name, r)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.AddCommand(set, logo)
	return cmd
}

func printSettings(w io.Writer, s models.ClubSettings) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", s.Name)
	if s.LogoURL != "" {
		fmt.Fprintf(tw, "Logo:\t%s\n", s.LogoURL)
	}
	fmt.Fprintf(tw, "Colors:\t%s %s\n", s.PrimaryColor, s.SecondaryColor)
	fmt.Fprintf(tw, "RSVP deadline:\t%dh before start\n", s.RSVPDefaults.DeadlineHours)
	fmt.Fprintf(tw, "RSVP visibility:\t%s\n", s.RSVPDefaults.Visibility)
	fmt.Fprintf(tw, "Reminders:\t%t (%dh before)\n", s.RSVPDefaults.AutoReminders, s.RSVPDefaults.ReminderHours)
	tw.Flush()
}

func activitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activities",
		Short: "List upcoming club activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.coord.Activities(cmd.Context(), a.cfg.ClubID)
			if err != nil {
				return err
			}
			printActivities(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func rsvpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "rsvp <activity-id> going|not-going",
		Short:     "Answer an activity invitation",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(models.RSVPGoing), string(models.RSVPNotGoing)},
		RunE: func(cmd *cobra.Command, args []string) error {
			response := models.RSVPResponse(args[1])
			if response != models.RSVPGoing && response != models.RSVPNotGoing {
				return fmt.Errorf("response must be going or not-going, got %q", args[1])
			}
			if _, err := a.coord.Activities(cmd.Context(), a.cfg.ClubID); err != nil {
				return err
			}
			act, err := a.coord.RSVP(cmd.Context(), a.cfg.ClubID, args[0], response)
			if err != nil {
				return err
			}
			printActivities(cmd.OutOrStdout(), []models.Activity{*act})
			return nil
		},
	}
}

func printActivities(w io.Writer, list []models.Activity) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tTYPE\tTITLE\tWHERE\tGOING\tNOT GOING\tYOU")
	for _, act := range list {
		you := "-"
		if act.RSVP.UserResponse != nil {
			you = string(*act.RSVP.UserResponse)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n", act.ID, act.StartsAt.Local().Format("Mon 02 Jan 15:04"),
			act.Type, act.Title, act.Location, act.RSVP.Going, act.RSVP.NotGoing, you)
	}
	tw.Flush()
}
