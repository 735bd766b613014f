package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"kmtracker/internal/database"
	"kmtracker/internal/tracker"
)

// SpeedLabel heads the computed average speed column
const SpeedLabel = "Avg. speed (km/h)"

// Console writes human readable tables and reports to Out
type Console struct {
	Out io.Writer
}

// NewConsole creates a console writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{Out: w}
}

// Rides prints a table of rides in the given order
func (c *Console) Rides(rides []*database.Ride) error {
	if len(rides) == 0 {
		_, err := fmt.Fprintln(c.Out, "Nothing to show.")
		return err
	}

	tw := c.table()
	row(tw, RideLabels()...)
	for _, r := range rides {
		row(tw, RideCells(r)...)
	}
	return tw.Flush()
}

// Aliases prints a table of aliases
func (c *Console) Aliases(aliases []*database.Alias) error {
	if len(aliases) == 0 {
		_, err := fmt.Fprintln(c.Out, "Nothing to show.")
		return err
	}

	// the alias ID is an implementation detail
	labels := database.AliasSchema.Labels()[1:]
	tw := c.table()
	row(tw, labels...)
	for _, a := range aliases {
		pretty := database.Pretty(database.AliasSchema, a)
		cells := make([]string, 0, len(labels))
		for _, col := range database.AliasSchema.Values() {
			cells = append(cells, orDash(pretty[col.Name]))
		}
		row(tw, cells...)
	}
	return tw.Flush()
}

// Summary prints the ride statistics report
func (c *Console) Summary(s *database.Summary) error {
	var b strings.Builder
	line := func(label, format string, args ...any) {
		fmt.Fprintf(&b, "%-25s: %s\n", label, fmt.Sprintf(format, args...))
	}

	line("total distance", "%s km (%d rides)", database.FormatFloat(s.TotalDistance), s.TotalRides)

	if r := s.LongestRide; r != nil {
		line("longest ride", "%s km (on %s)", database.FormatFloat(r.Value), date(r.Timestamp))
	} else {
		line("longest ride", "-")
	}
	if r := s.MaxDailyDistance; r != nil {
		line("maximum distance on a day", "%s km (on %s)", database.FormatFloat(r.Value), date(r.Day))
	} else {
		line("maximum distance on a day", "-")
	}
	if s.AverageSpeed != nil {
		line("average speed", "%s km/h", database.FormatFloat(*s.AverageSpeed))
	} else {
		line("average speed", "-")
	}
	if r := s.MaxSpeed; r != nil {
		line("fastest ride", "%s km/h (on %s)", database.FormatFloat(r.Value), date(r.Timestamp))
	} else {
		line("fastest ride", "-")
	}
	if st := s.LongestStreak; st != nil {
		line("longest streak", "%d days (until %s)", st.Days, date(st.Anchor))
	} else {
		line("longest streak", "-")
	}

	_, err := io.WriteString(c.Out, b.String())
	return err
}

// Entry prints one ride and the statistics of its stored track
func (c *Console) Entry(e *tracker.Entry) error {
	if err := c.Rides([]*database.Ride{e.Ride}); err != nil {
		return err
	}
	if e.TrackErr != nil {
		_, err := fmt.Fprintf(c.Out, "error: %v\n", e.TrackErr)
		return err
	}
	if e.Track == nil {
		return nil
	}

	t := e.Track
	_, err := fmt.Fprintf(c.Out,
		"time in motion         : %s\n"+
			"time at rest           : %s\n"+
			"average speed in motion: %s km/h\n"+
			"maximum speed          : %s km/h\n"+
			"uphill                 : %.0f m\n"+
			"downhill               : %.0f m\n",
		database.FormatDuration(t.MovingTime),
		database.FormatDuration(t.StoppedTime),
		database.FormatFloat(t.MovingSpeed),
		database.FormatFloat(t.MaxSpeed),
		t.Uphill,
		t.Downhill,
	)
	return err
}

// Streak congratulates on a running streak; nothing is printed below two days
func (c *Console) Streak(days int) error {
	if days < 2 {
		return nil
	}
	_, err := fmt.Fprintf(c.Out, "You're on a streak! %d days in a row\n", days)
	return err
}

// RideLabels returns the column headings matching RideCells
func RideLabels() []string {
	s := database.RideSchema
	labels := make([]string, 0, len(s.Columns)+1)
	for _, name := range rideColumns {
		col, _ := s.Column(name)
		labels = append(labels, col.Label)
		if name == database.RideDuration {
			labels = append(labels, SpeedLabel)
		}
	}
	return labels
}

var rideColumns = []string{
	database.RideID,
	database.RideTimestamp,
	database.RideDistance,
	database.RideDuration,
	database.RideComment,
	database.RideSegments,
	database.RideGPX,
}

// RideCells renders one ride in the column order of a ride table
func RideCells(r *database.Ride) []string {
	pretty := database.Pretty(database.RideSchema, r)
	cells := make([]string, 0, len(rideColumns)+1)
	for _, name := range rideColumns {
		switch name {
		case database.RideGPX:
			cells = append(cells, gpxMark(r))
		default:
			cells = append(cells, orDash(pretty[name]))
		}
		if name == database.RideDuration {
			speed := "-"
			if s := r.Speed(); s != nil {
				speed = database.FormatFloat(*s)
			}
			cells = append(cells, speed)
		}
	}
	return cells
}

func gpxMark(r *database.Ride) string {
	if r.HasGPX() {
		return "yes"
	}
	return "-"
}

func (c *Console) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
}

func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func date(t time.Time) string {
	return t.Format("2006-01-02")
}
