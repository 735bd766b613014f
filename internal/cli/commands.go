package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kmtracker/internal/database"
	"kmtracker/internal/tracker"
)

// rideFlags are the value flags shared by add, amend and alias add
type rideFlags struct {
	distance  string
	timestamp string
	duration  string
	comment   string
	segments  int64
	gpxPath   string
}

func (f *rideFlags) register(fs *pflag.FlagSet, withDistance, withTimestamp, withGPX bool) {
	if withDistance {
		fs.StringVarP(&f.distance, "distance", "k", "", "distance in km")
	}
	if withTimestamp {
		fs.StringVarP(&f.timestamp, "timestamp", "t", "", "datetime of the ride")
	}
	fs.StringVarP(&f.duration, "duration", "d", "", "duration of the ride (hh:mm or hh:mm:ss)")
	fs.StringVarP(&f.comment, "comment", "c", "", "comment")
	fs.Int64VarP(&f.segments, "segments", "s", 0, "split this ride into n segments")
	if withGPX {
		fs.StringVarP(&f.gpxPath, "gpx", "g", "", "add gpx file")
	}
}

// input converts the flags that were set on cmd into a ride input
func (f *rideFlags) input(cmd *cobra.Command) (tracker.RideInput, error) {
	var in tracker.RideInput
	changed := cmd.Flags().Changed

	if changed("distance") {
		km, err := ParseDistance(f.distance)
		if err != nil {
			return in, usageErrorf("%v", err)
		}
		in.Distance = &km
	}
	if changed("timestamp") {
		ts, err := ParseTimestamp(f.timestamp)
		if err != nil {
			return in, usageErrorf("%v", err)
		}
		in.Timestamp = &ts
	}
	if changed("duration") {
		d, err := ParseDuration(f.duration)
		if err != nil {
			return in, usageErrorf("%v", err)
		}
		in.Duration = &d
	}
	if changed("comment") {
		comment := f.comment
		in.Comment = &comment
	}
	if changed("segments") {
		segments := f.segments
		in.Segments = &segments
	}
	if changed("gpx") {
		data, err := os.ReadFile(f.gpxPath)
		if err != nil {
			return in, fmt.Errorf("failed to read gpx file: %w", err)
		}
		source := string(data)
		in.GPX = &source
	}
	return in, nil
}

func newAddCommand(s *session) *cobra.Command {
	var flags rideFlags

	cmd := &cobra.Command{
		Use:   "add <distance|alias>",
		Short: "Add a new ride",
		Long:  "Add a new ride. The argument is either the distance in km or the name of an alias whose values are used for every flag that is not given.",
		Args:  cobra.ExactArgs(1),
	}
	flags.register(cmd.Flags(), false, true, true)

	cmd.RunE = s.run(func(e *env, args []string) error {
		in, err := flags.input(cmd)
		if err != nil {
			return err
		}
		if km, err := strconv.ParseFloat(args[0], 64); err == nil {
			in.Distance = &km
		} else {
			in.Alias = args[0]
		}

		ride, err := e.tracker.Add(in)
		if err != nil {
			return err
		}

		fmt.Fprintln(e.out, "Success! Added a new ride:")
		if err := e.console.Rides([]*database.Ride{ride}); err != nil {
			return err
		}
		return printStreak(e)
	})
	return cmd
}

func newAmendCommand(s *session) *cobra.Command {
	var flags rideFlags
	var id int64

	cmd := &cobra.Command{
		Use:   "amend",
		Short: "Change the latest entry",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Int64Var(&id, "id", 0, "ID of the entry to change; the latest if omitted")
	flags.register(cmd.Flags(), true, true, true)

	cmd.RunE = s.run(func(e *env, _ []string) error {
		in, err := flags.input(cmd)
		if err != nil {
			return err
		}

		var target *int64
		if cmd.Flags().Changed("id") {
			target = &id
		}

		ride, err := e.tracker.Amend(target, in)
		if err != nil {
			return err
		}

		if target == nil {
			fmt.Fprintln(e.out, "Changed the latest entry:")
		} else {
			fmt.Fprintf(e.out, "Changed entry with ID %d:\n", id)
		}
		return e.console.Rides([]*database.Ride{ride})
	})
	return cmd
}

func newAliasCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage default values for rides",
	}
	cmd.AddCommand(newAliasAddCommand(s), newAliasListCommand(s))
	return cmd
}

func newAliasAddCommand(s *session) *cobra.Command {
	var flags rideFlags

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an alias",
		Args:  cobra.ExactArgs(1),
	}
	flags.register(cmd.Flags(), true, false, false)

	cmd.RunE = s.run(func(e *env, args []string) error {
		in, err := flags.input(cmd)
		if err != nil {
			return err
		}

		alias, err := e.tracker.AddAlias(args[0], in)
		if err != nil {
			return err
		}

		fmt.Fprintf(e.out, "Added a new alias with name %s:\n", alias.Name)
		return e.console.Aliases([]*database.Alias{alias})
	})
	return cmd
}

func newAliasListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all aliases",
		Args:  cobra.NoArgs,
		RunE: s.run(func(e *env, _ []string) error {
			aliases, err := e.tracker.Aliases()
			if err != nil {
				return err
			}
			return e.console.Aliases(aliases)
		}),
	}
}

func newLoadGPXCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "loadgpx <path>",
		Short: "Add entries from a gpx file",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(e *env, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read gpx file: %w", err)
			}

			rides, err := e.tracker.ImportGPX(data)
			if err != nil {
				return err
			}
			if err := e.console.Rides(rides); err != nil {
				return err
			}
			return printStreak(e)
		}),
	}
}

func newListCommand(s *session) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "Show the latest rides",
		Args:  cobra.NoArgs,
		RunE: s.run(func(e *env, _ []string) error {
			rides, err := e.tracker.Latest(n)
			if err != nil {
				return err
			}
			return e.console.Rides(rides)
		}),
	}
	cmd.Flags().IntVarP(&n, "number", "n", -1, "number of entries to show; all if negative")
	return cmd
}

func newShowCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(e *env, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return usageErrorf("invalid ID: %q", args[0])
			}

			entry, err := e.tracker.Entry(id)
			if err != nil {
				return err
			}
			return e.console.Entry(entry)
		}),
	}
}

func newStatsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ride statistics",
		Args:  cobra.NoArgs,
		RunE: s.run(func(e *env, _ []string) error {
			summary, err := e.tracker.Summary()
			if err != nil {
				return err
			}
			return e.console.Summary(summary)
		}),
	}
}

func printStreak(e *env) error {
	days, err := e.tracker.StreakOn(time.Now())
	if err != nil {
		return err
	}
	return e.console.Streak(days)
}
