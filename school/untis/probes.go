package untis

import (
	"time"

	"github.com/harrybrwn/untis-probe/pkg/probe"
)

// Probe names in the order they are run.
const (
	ProbeSchoolYears           = "schoolyears"
	ProbeKlassen               = "klassen"
	ProbeSubjects              = "subjects"
	ProbeTeachers              = "teachers"
	ProbeRooms                 = "rooms"
	ProbeHolidays              = "holidays"
	ProbeTimegridUnits         = "timegrid units"
	ProbeMyTimetable           = "my timetable"
	ProbeTimetableExtended     = "timetable extended"
	ProbeStudents              = "students"
	ProbeTimetableWithAbsences = "timetable with absences"
	ProbeOwnAbsences           = "own absences"
	ProbeExams                 = "exams"
	ProbeSubstitutions         = "substitutions"
)

// ProbeConfig holds the dates used by the probes.
type ProbeConfig struct {
	// Now is the reference day, defaults to time.Now.
	Now time.Time
	// Window is used for the timetable calls.
	Window Window
	// ExamEnd is the last day exams are listed for.
	ExamEnd time.Time
	// Student is used for the extended timetable when non-zero.
	Student int
}

// plan carries state between probes of one run. The school year
// found by the first probe is used to clip the timetable window.
type plan struct {
	s    *Session
	conf ProbeConfig
	year *SchoolYear
}

func (p *plan) window() Window {
	return p.conf.Window.Clip(p.year)
}

func (p *plan) schoolYears() ([]probe.Record, error) {
	recs, err := p.s.SchoolYears()
	if err != nil {
		return nil, err
	}
	if y, ok := CurrentYear(recs, p.conf.Now); ok {
		p.year = y
		return recs, nil
	}
	// the server's own idea of the current year
	cur, err := p.s.CurrentSchoolYear()
	if err == nil && len(cur) > 0 {
		if y, err := DecodeSchoolYear(cur[0]); err == nil {
			p.year = y
		}
	}
	return recs, nil
}

func (p *plan) yearNote() string {
	if p.year == nil {
		return "no current school year"
	}
	return "current school year: " + p.year.String()
}

func (p *plan) examWindow() Window {
	return Window{Start: p.conf.Window.Start, End: p.conf.ExamEnd}
}

func (p *plan) windowNote() string {
	return "window: " + p.window().String()
}

// Probes returns the fixed, ordered list of probes run against
// a session.
func Probes(s *Session, conf ProbeConfig) []probe.Probe {
	if conf.Now.IsZero() {
		conf.Now = time.Now()
	}
	if conf.Window.Start.IsZero() || conf.Window.End.IsZero() {
		conf.Window = NewWindow(conf.Now, 7, 14)
	}
	if conf.ExamEnd.IsZero() {
		conf.ExamEnd = conf.Now.AddDate(0, 0, 90)
	}
	p := &plan{s: s, conf: conf}

	return []probe.Probe{
		{
			Name:   ProbeSchoolYears,
			Fields: SchoolYearFields,
			Query:  p.schoolYears,
			Note:   p.yearNote,
		},
		{Name: ProbeKlassen, Fields: KlasseFields, Query: s.Klassen},
		{Name: ProbeSubjects, Fields: SubjectFields, Query: s.Subjects},
		{Name: ProbeTeachers, Fields: TeacherFields, Query: s.Teachers},
		{Name: ProbeRooms, Fields: RoomFields, Query: s.Rooms},
		{Name: ProbeHolidays, Fields: HolidayFields, Query: s.Holidays},
		{Name: ProbeTimegridUnits, Fields: TimegridFields, Query: s.TimegridUnits},
		{
			Name:       ProbeMyTimetable,
			Fields:     PeriodFields,
			Indicators: PeriodIndicators,
			Query: func() ([]probe.Record, error) {
				return s.MyTimetable(p.window())
			},
			Note: p.windowNote,
		},
		{
			Name:       ProbeTimetableExtended,
			Fields:     ExtendedPeriodFields,
			Indicators: ExtendedIndicators,
			Query: func() ([]probe.Record, error) {
				return s.TimetableExtended(p.window(), conf.Student)
			},
			Note: p.windowNote,
		},
		{Name: ProbeStudents, Fields: StudentFields, Query: s.Students},
		{
			Name:       ProbeTimetableWithAbsences,
			Fields:     AbsencePeriodFields,
			Indicators: AbsenceIndicators,
			Keywords:   absenceKeywords,
			Query: func() ([]probe.Record, error) {
				return s.TimetableWithAbsences(p.window())
			},
			Note: p.windowNote,
		},
		{Name: ProbeOwnAbsences, Query: s.OwnAbsences},
		{
			Name:   ProbeExams,
			Fields: ExamFields,
			Query: func() ([]probe.Record, error) {
				return s.Exams(p.examWindow())
			},
			Note: func() string { return "window: " + p.examWindow().String() },
		},
		{
			Name:       ProbeSubstitutions,
			Fields:     SubstitutionFields,
			Indicators: SubstitutionIndicators,
			Query: func() ([]probe.Record, error) {
				return s.Substitutions(p.conf.Now)
			},
		},
	}
}
