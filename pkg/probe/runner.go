package probe

import (
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"time"

	"github.com/harrybrwn/errs"
	"github.com/harrybrwn/untis-probe/pkg/term"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MaxDump is the largest number of records dumped per probe.
const MaxDump = 3

// Runner runs probes one after the other against a single session.
type Runner struct {
	Out   io.Writer
	Log   logrus.FieldLogger
	Paint *term.Painter
	// Limit is the number of records dumped per probe. It is
	// clamped to [1, MaxDump], zero means MaxDump.
	Limit int

	state State
}

// NewRunner creates a runner that prints to out.
func NewRunner(out io.Writer, log logrus.FieldLogger) *Runner {
	return &Runner{Out: out, Log: log, Limit: MaxDump}
}

// State returns the current state of the runner.
func (r *Runner) State() State { return r.state }

// Run logs into the session, runs every probe in order and closes
// the session. Only a failed login stops the run early; errors
// returned by individual probes end up in the report.
func (r *Runner) Run(s Session, probes []Probe) (report *Report, err error) {
	r.setup()
	r.state = NotConnected
	defer func() {
		if e := s.Close(); e != nil {
			r.Log.WithError(e).Warn("could not close session")
			fmt.Fprintf(r.Out, "%s logout: %v\n", r.Paint.Warn(), e)
		} else {
			r.Log.Debug("session closed")
		}
		r.state = Disconnected
	}()

	if err = s.Login(); err != nil {
		r.Log.WithError(err).Error("login failed")
		fmt.Fprintf(r.Out, "%s login: %v\n", r.Paint.Fail(), err)
		return nil, &LoginError{Err: err}
	}
	r.state = Connected
	r.Log.Info("logged in")
	fmt.Fprintf(r.Out, "%s logged in\n", r.Paint.OK())

	report = &Report{Results: make([]*Result, 0, len(probes))}
	for i := range probes {
		r.state = Probing
		report.Results = append(report.Results, r.probe(&probes[i]))
		r.state = Reported
	}
	return report, nil
}

func (r *Runner) setup() {
	if r.Out == nil {
		r.Out = ioutil.Discard
	}
	if r.Log == nil {
		l := logrus.New()
		l.SetOutput(ioutil.Discard)
		r.Log = l
	}
}

func (r *Runner) limit() int {
	switch {
	case r.Limit <= 0 || r.Limit > MaxDump:
		return MaxDump
	default:
		return r.Limit
	}
}

func (r *Runner) probe(p *Probe) *Result {
	res := &Result{Name: p.Name}
	fmt.Fprintf(r.Out, "\n%s %s\n", r.Paint.Cyan(term.MarkSection), r.Paint.Bold(p.Name))

	start := time.Now()
	records, err := call(p.Query)
	res.Elapsed = time.Since(start)
	log := r.Log.WithFields(logrus.Fields{
		"probe":   p.Name,
		"elapsed": res.Elapsed,
	})

	if err != nil {
		res.Err = err
		if errors.Is(err, ErrUnsupported) {
			res.Unsupported = true
			log.Warn("probe not available")
			fmt.Fprintf(r.Out, "%s %s: not available\n", r.Paint.Warn(), p.Name)
		} else {
			log.WithError(err).Error("probe failed")
			fmt.Fprintf(r.Out, "%s %s: %v\n", r.Paint.Fail(), p.Name, err)
		}
		r.note(p)
		return res
	}

	res.Count = len(records)
	log.WithField("count", res.Count).Info("probe finished")
	fmt.Fprintf(r.Out, "%s %s: %d %s\n", r.Paint.OK(), p.Name, res.Count, plural(res.Count, "record"))
	r.note(p)
	r.dump(p, records)
	r.scan(p, records, res)
	return res
}

func (r *Runner) note(p *Probe) {
	if p.Note == nil {
		return
	}
	var msg string
	func() {
		defer func() {
			if e := recover(); e != nil {
				r.Log.WithField("probe", p.Name).Warnf("note: %v", e)
			}
		}()
		msg = p.Note()
	}()
	if msg != "" {
		fmt.Fprintf(r.Out, "   %s\n", msg)
	}
}

func call(q Query) (records []Record, err error) {
	if q == nil {
		return nil, ErrUnsupported
	}
	defer func() {
		if v := recover(); v != nil {
			err = errs.New(fmt.Sprintf("query panicked: %v", v))
		}
	}()
	return q()
}

// Select returns the probes named in names, keeping their
// order. An empty list selects every probe.
func Select(probes []Probe, names []string) ([]Probe, error) {
	if len(names) == 0 {
		return probes, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[normalize(n)] = true
	}
	selected := make([]Probe, 0, len(names))
	for _, p := range probes {
		key := normalize(p.Name)
		if want[key] {
			selected = append(selected, p)
			delete(want, key)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for _, n := range names {
			if want[normalize(n)] {
				unknown = append(unknown, n)
			}
		}
		return nil, errors.Errorf("unknown probe(s): %s", strings.Join(unknown, ", "))
	}
	return selected, nil
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(name)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
