package untis

import (
	"time"

	"github.com/harrybrwn/errs"
	"github.com/harrybrwn/untis-probe/pkg/probe"
)

// SchoolYears lists all school years.
func (s *Session) SchoolYears() ([]probe.Record, error) {
	return s.list("getSchoolyears", noParams)
}

// CurrentSchoolYear returns the current school year as one record.
func (s *Session) CurrentSchoolYear() ([]probe.Record, error) {
	return s.list("getCurrentSchoolyear", noParams)
}

// Klassen lists the classes of the current school year.
func (s *Session) Klassen() ([]probe.Record, error) {
	return s.list("getKlassen", noParams)
}

// Teachers lists all teachers. Student accounts are usually not
// allowed to do this.
func (s *Session) Teachers() ([]probe.Record, error) {
	return s.list("getTeachers", noParams)
}

// Subjects lists all subjects.
func (s *Session) Subjects() ([]probe.Record, error) {
	return s.list("getSubjects", noParams)
}

// Rooms lists all rooms.
func (s *Session) Rooms() ([]probe.Record, error) {
	return s.list("getRooms", noParams)
}

// Holidays lists the holidays.
func (s *Session) Holidays() ([]probe.Record, error) {
	return s.list("getHolidays", noParams)
}

// TimegridUnits lists the time grid, one record per weekday.
func (s *Session) TimegridUnits() ([]probe.Record, error) {
	return s.list("getTimegridUnits", noParams)
}

// Students lists the students visible to the account.
func (s *Session) Students() ([]probe.Record, error) {
	return s.list("getStudents", noParams)
}

var errNoPerson = errs.New("no timetable element is attached to this account")

// MyTimetable lists the periods of the logged in user's own
// timetable.
func (s *Session) MyTimetable(w Window) ([]probe.Record, error) {
	if s.LoggedIn() && s.person.ID == 0 {
		return nil, errNoPerson
	}
	return s.list("getTimetable", map[string]interface{}{
		"id":        s.person.ID,
		"type":      s.person.Type,
		"startDate": dateInt(w.Start),
		"endDate":   dateInt(w.End),
	})
}

// TimetableExtended lists periods with every optional field the
// api can be asked for. If student is zero the logged in user's
// element is used.
func (s *Session) TimetableExtended(w Window, student int) ([]probe.Record, error) {
	element := map[string]interface{}{"id": s.person.ID, "type": s.person.Type}
	if student != 0 {
		element = map[string]interface{}{"id": student, "type": ElementStudent}
	} else if s.LoggedIn() && s.person.ID == 0 {
		return nil, errNoPerson
	}
	return s.list("getTimetable", map[string]interface{}{
		"options": map[string]interface{}{
			"element":          element,
			"startDate":        dateInt(w.Start),
			"endDate":          dateInt(w.End),
			"showBooking":      true,
			"showInfo":         true,
			"showSubstText":    true,
			"showLsText":       true,
			"showLsNumber":     true,
			"showStudentgroup": true,
			"klasseFields":     []string{"id", "name", "longname"},
			"teacherFields":    []string{"id", "name", "longname"},
			"subjectFields":    []string{"id", "name", "longname"},
			"roomFields":       []string{"id", "name", "longname"},
		},
	})
}

// TimetableWithAbsences lists periods together with the absences
// recorded for them.
func (s *Session) TimetableWithAbsences(w Window) ([]probe.Record, error) {
	return s.list("getTimetableWithAbsences", map[string]interface{}{
		"options": map[string]interface{}{
			"startDate": dateInt(w.Start),
			"endDate":   dateInt(w.End),
		},
	})
}

// OwnAbsences is not offered by the JSON-RPC api. Absences are
// only reachable through TimetableWithAbsences.
func (s *Session) OwnAbsences() ([]probe.Record, error) {
	return nil, ErrUnsupported
}

// Exams lists exams of all types in the window.
func (s *Session) Exams(w Window) ([]probe.Record, error) {
	return s.list("getExams", map[string]interface{}{
		"examTypeId": 0,
		"startDate":  dateInt(w.Start),
		"endDate":    dateInt(w.End),
	})
}

// Substitutions lists the substitutions of one day.
func (s *Session) Substitutions(day time.Time) ([]probe.Record, error) {
	d := dateInt(day)
	return s.list("getSubstitutions", map[string]interface{}{
		"startDate":    d,
		"endDate":      d,
		"departmentId": 0,
	})
}
