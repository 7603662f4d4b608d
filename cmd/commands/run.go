package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/harrybrwn/untis-probe/cmd/internal"
	"github.com/harrybrwn/untis-probe/cmd/internal/env"
	"github.com/harrybrwn/untis-probe/cmd/internal/opts"
	"github.com/harrybrwn/untis-probe/pkg/probe"
	"github.com/harrybrwn/untis-probe/pkg/term"
	"github.com/harrybrwn/untis-probe/school/untis"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes
const (
	CodeLogin  = 1
	CodeConfig = 2
)

// swapped out in tests
var (
	loadCredentials = func(l *env.Loader) (*env.Credentials, error) {
		return l.Load()
	}
	newSession = func(c *env.Credentials) *untis.Session {
		return untis.New(c.Server, c.School, c.Username, c.Password)
	}
	notify = beeep.Notify
	now    = time.Now
)

type runFlags struct {
	limit     int
	daysBack  int
	daysAhead int
	examDays  int
	student   int
	only      []string
	userAgent string
	envFile   string
	notify    bool
}

func (f *runFlags) AddToFlagSet(set *pflag.FlagSet) {
	set.IntVarP(&f.limit, "limit", "n", Conf.Limit, fmt.Sprintf("number of records dumped per probe (1-%d)", probe.MaxDump))
	set.IntVar(&f.daysBack, "days-back", Conf.DaysBack, "days before today in the timetable window")
	set.IntVar(&f.daysAhead, "days-ahead", Conf.DaysAhead, "days after today in the timetable window")
	set.IntVar(&f.examDays, "exam-days", Conf.ExamDays, "days after today to list exams for")
	set.IntVar(&f.student, "student", Conf.Student, "student id used for the extended timetable")
	set.StringSliceVar(&f.only, "only", nil, "only run the probes with these names")
	set.StringVar(&f.userAgent, "user-agent", Conf.UserAgent, "client name sent to the server")
	set.StringVar(&f.envFile, "env-file", Conf.EnvFile, "name or path of the env file")
	set.BoolVar(&f.notify, "notify", Conf.Notify, "send a desktop notification when finished")
}

// NewRunCmd creates the command that runs the probes. The
// root command uses it as its default action.
func NewRunCmd(globals *opts.Global) *cobra.Command {
	flags := &runFlags{}
	c := &cobra.Command{
		Use:   "run",
		Short: "Log in and run every probe",
		Long: `Log in to the WebUntis server, run each probe against the
same session and print what came back. The credentials are
read from the environment or a .env file:

    UNTIS_BASE_SERVER   UNTIS_SCHOOL
    UNTIS_USERNAME      UNTIS_PASSWORD`,
		Example: "$ untis-probe run --only klassen,exams --limit 1",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), globals, flags)
		},
	}
	flags.AddToFlagSet(c.Flags())
	return c
}

func run(out io.Writer, globals *opts.Global, f *runFlags) error {
	loader := newLoader(f.envFile)
	creds, err := loadCredentials(loader)
	if err != nil {
		Log.WithError(err).Error("could not load credentials")
		return &internal.Error{Msg: err.Error(), Code: CodeConfig}
	}
	if file := loader.FileUsed(); file != "" {
		Log.WithField("file", file).Info("read env file")
	}

	s := newSession(creds)
	if f.userAgent != "" {
		s.ClientName = f.userAgent
	}
	today := now()
	conf := untis.ProbeConfig{
		Now:     today,
		Window:  untis.NewWindow(today, f.daysBack, f.daysAhead),
		ExamEnd: today.AddDate(0, 0, f.examDays),
		Student: f.student,
	}
	probes, err := probe.Select(untis.Probes(s, conf), f.only)
	if err != nil {
		return &internal.Error{Msg: err.Error(), Code: CodeConfig}
	}

	paint := term.NewPainter(globals.NoColor)
	fmt.Fprintf(out, "%s %s\n", paint.Faint("server:"), creds.Server)
	fmt.Fprintf(out, "%s %s\n", paint.Faint("school:"), creds.School)
	fmt.Fprintf(out, "%s %s\n", paint.Faint("user:  "), creds.Username)
	fmt.Fprintf(out, "%s %s %s\n", paint.Faint("window:"), conf.Window, paint.Faint("(before clipping to the school year)"))

	log := Log.WithFields(logrus.Fields{
		"server": creds.Server,
		"school": creds.School,
		"user":   creds.Username,
	})
	r := probe.NewRunner(out, log)
	r.Paint = paint
	r.Limit = f.limit
	report, err := r.Run(s, probes)
	if err != nil {
		if f.notify {
			sendNotification("login failed", err.Error())
		}
		return &internal.Error{Msg: err.Error(), Code: CodeLogin}
	}

	fmt.Fprintln(out)
	summary(out, report, !globals.NoColor)
	if f.notify {
		sendNotification("finished", fmt.Sprintf(
			"%d probes, %d failed", len(report.Results), report.Failed()))
	}
	return nil
}

func summary(out io.Writer, report *probe.Report, color bool) {
	tab := internal.NewTable(out)
	internal.SetTableHeader(tab, []string{"probe", "status", "records", "indicators", "absen", "time"}, color)
	for _, res := range report.Results {
		count, indicators, mentions := "-", "-", "-"
		if res.OK() {
			count = fmt.Sprintf("%d", res.Count)
			indicators = fmt.Sprintf("%d", res.Indicators)
			mentions = fmt.Sprintf("%d", res.Mentions)
		}
		tab.Append([]string{
			res.Name,
			res.Status(),
			count,
			indicators,
			mentions,
			res.Elapsed.Round(time.Millisecond).String(),
		})
	}
	tab.Render()
}

func sendNotification(title, msg string) {
	if err := notify("untis-probe: "+title, msg, ""); err != nil {
		Log.WithError(err).Warn("could not send notification")
	}
}
