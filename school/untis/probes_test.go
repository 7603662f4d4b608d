package untis

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harrybrwn/untis-probe/pkg/probe"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestDecodeSchoolYear(t *testing.T) {
	rec := Record{
		"id":        json.Number("11"),
		"name":      "2026/2027",
		"startDate": json.Number("20260907"),
		"endDate":   json.Number("20270709"),
	}
	y, err := DecodeSchoolYear(rec)
	if err != nil {
		t.Fatal(err)
	}
	if y.ID != 11 || y.Name != "2026/2027" || y.StartDate != 20260907 || y.EndDate != 20270709 {
		t.Errorf("wrong school year %+v", y)
	}
	if !y.Start().Equal(day(2026, time.September, 7)) {
		t.Errorf("wrong start %v", y.Start())
	}
	if !y.Contains(day(2026, time.October, 16)) || y.Contains(day(2027, time.August, 1)) {
		t.Error("wrong Contains result")
	}

	for _, bad := range []probe.Record{
		Record{"name": "no dates"},
		Record{"startDate": json.Number("20270101"), "endDate": json.Number("20260101")},
		Record{"startDate": "not a date", "endDate": json.Number("20260101")},
	} {
		if _, err = DecodeSchoolYear(bad); err == nil {
			t.Errorf("expected an error for %v", bad)
		}
	}
}

func TestCurrentYear(t *testing.T) {
	recs := toRecords([]interface{}{
		map[string]interface{}{"id": json.Number("1"), "name": "old", "startDate": json.Number("20250908"), "endDate": json.Number("20260710")},
		map[string]interface{}{"id": json.Number("2"), "name": "current", "startDate": json.Number("20260907"), "endDate": json.Number("20270709")},
		"garbage",
	})
	y, ok := CurrentYear(recs, day(2026, time.October, 16))
	if !ok || y.Name != "current" {
		t.Errorf("wrong current year %v", y)
	}
	if _, ok = CurrentYear(recs, day(2030, time.January, 1)); ok {
		t.Error("should not find a year")
	}
}

func TestWindowClip(t *testing.T) {
	y := &SchoolYear{StartDate: 20260907, EndDate: 20270709}
	tests := []struct {
		in, want Window
	}{
		{
			Window{day(2026, time.September, 1), day(2026, time.September, 20)},
			Window{day(2026, time.September, 7), day(2026, time.September, 20)},
		},
		{
			Window{day(2027, time.July, 1), day(2027, time.July, 20)},
			Window{day(2027, time.July, 1), day(2027, time.July, 9)},
		},
		{
			Window{day(2026, time.October, 1), day(2026, time.October, 20)},
			Window{day(2026, time.October, 1), day(2026, time.October, 20)},
		},
		{ // no overlap
			Window{day(2027, time.August, 1), day(2027, time.August, 20)},
			Window{day(2027, time.August, 1), day(2027, time.August, 20)},
		},
	}
	for _, tc := range tests {
		got := tc.in.Clip(y)
		if !got.Start.Equal(tc.want.Start) || !got.End.Equal(tc.want.End) {
			t.Errorf("Clip(%v) = %v; want %v", tc.in, got, tc.want)
		}
	}
	w := tests[0].in
	if got := w.Clip(nil); got != w {
		t.Error("nil school year should not change the window")
	}
}

func TestToRecords(t *testing.T) {
	if recs := toRecords(nil); len(recs) != 0 {
		t.Error("null result should give no records")
	}
	recs := toRecords(map[string]interface{}{"id": 1})
	if len(recs) != 1 {
		t.Fatal("an object should give one record")
	}
	recs = toRecords([]interface{}{json.Number("3"), map[string]interface{}{"id": 1}})
	v, err := recs[0].Field("value")
	if err != nil || v != json.Number("3") {
		t.Errorf("non-object items should be stored under value; got %v, %v", v, err)
	}
}

func TestProbes(t *testing.T) {
	now := day(2026, time.October, 16)
	f := newFakeServer(t)
	f.results["logout"] = nil
	f.results["getSchoolyears"] = []interface{}{
		map[string]interface{}{"id": 2, "name": "2026/2027", "startDate": 20261001, "endDate": 20270709},
	}
	f.results["getKlassen"] = []interface{}{map[string]interface{}{"id": 1, "name": "5a"}}
	f.results["getSubjects"] = []interface{}{}
	f.errors["getTeachers"] = &Error{Code: CodeNoRight, Message: "no right for getTeachers()"}
	f.results["getRooms"] = []interface{}{}
	f.results["getHolidays"] = []interface{}{}
	f.results["getTimegridUnits"] = []interface{}{}
	f.results["getTimetable"] = []interface{}{
		map[string]interface{}{"id": 1, "date": 20261016, "code": "cancelled"},
		map[string]interface{}{"id": 2, "date": 20261016},
		map[string]interface{}{"id": 3, "date": 20261017, "lstext": "Exkursion"},
	}
	f.results["getStudents"] = []interface{}{}
	f.results["getTimetableWithAbsences"] = []interface{}{}
	f.results["getExams"] = []interface{}{}

	s := testSession(t, f)
	conf := ProbeConfig{Now: now, Window: NewWindow(now, 30, 7)}
	probes := Probes(s, conf)

	names := make([]string, len(probes))
	for i, p := range probes {
		names[i] = p.Name
	}
	want := []string{
		ProbeSchoolYears, ProbeKlassen, ProbeSubjects, ProbeTeachers, ProbeRooms,
		ProbeHolidays, ProbeTimegridUnits, ProbeMyTimetable, ProbeTimetableExtended,
		ProbeStudents, ProbeTimetableWithAbsences, ProbeOwnAbsences, ProbeExams,
		ProbeSubstitutions,
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("wrong probe order:\n got %v\nwant %v", names, want)
	}

	var buf bytes.Buffer
	report, err := probe.NewRunner(&buf, nil).Run(s, probes)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Results) != len(want) {
		t.Fatalf("got %d results; want %d", len(report.Results), len(want))
	}
	if res := report.Get(ProbeMyTimetable); res.Count != 3 || res.Indicators != 2 {
		t.Errorf("wrong timetable result %+v", res)
	}
	if res := report.Get(ProbeTeachers); res.OK() || res.Unsupported {
		t.Errorf("teachers should have failed: %+v", res)
	}
	for _, name := range []string{ProbeOwnAbsences, ProbeSubstitutions} {
		if res := report.Get(name); !res.Unsupported {
			t.Errorf("%s should be unsupported: %+v", name, res)
		}
	}
	if res := report.Get(ProbeTimetableWithAbsences); !res.OK() || res.Count != 0 {
		t.Errorf("wrong absences result %+v", res)
	}

	// the window starts 30 days back but gets clipped to the school year
	params := f.paramsOf("getTimetableWithAbsences")["options"].(map[string]interface{})
	if params["startDate"] != 20261001.0 {
		t.Errorf("window should be clipped to the school year; got %v", params["startDate"])
	}
	exams := f.paramsOf("getExams")
	if exams["endDate"] != 20270114.0 {
		t.Errorf("exams should default to 90 days ahead; got %v", exams["endDate"])
	}
	if f.count("logout") != 1 {
		t.Error("session should be closed once")
	}
	out := buf.String()
	for _, want := range []string{
		"teachers: getTeachers: no right for getTeachers() (code -8509)",
		"current school year: 2026/2027 (2026-10-01 - 2027-07-09)",
		// clipped to the start of the school year
		"window: 2026-10-01 - 2026-10-23",
		"window: 2026-09-16 - 2027-01-14",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in the output:\n%s", want, out)
		}
	}
	if f.count("getCurrentSchoolyear") != 0 {
		t.Error("the server's current year is only needed when no year contains today")
	}
}

func TestProbes_CurrentYearFallback(t *testing.T) {
	now := day(2026, time.August, 20)
	years := []interface{}{
		map[string]interface{}{"id": 1, "name": "2025/2026", "startDate": 20250908, "endDate": 20260710},
		map[string]interface{}{"id": 2, "name": "2026/2027", "startDate": 20260907, "endDate": 20270709},
	}
	tests := []struct {
		name    string
		current interface{}
		want    string
	}{
		{"server year", []interface{}{years[1]}, "current school year: 2026/2027 (2026-09-07 - 2027-07-09)"},
		{"no year", nil, "no current school year"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeServer(t)
			f.results["logout"] = nil
			f.results["getSchoolyears"] = years
			if tc.current != nil {
				f.results["getCurrentSchoolyear"] = tc.current
			}
			s := testSession(t, f)
			probes, err := probe.Select(Probes(s, ProbeConfig{Now: now}), []string{ProbeSchoolYears})
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			if _, err = probe.NewRunner(&buf, nil).Run(s, probes); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), "   "+tc.want+"\n") {
				t.Errorf("expected %q in the output:\n%s", tc.want, buf.String())
			}
			if f.count("getCurrentSchoolyear") != 1 {
				t.Error("should ask the server for the current year")
			}
		})
	}
}
