package untis

// Documented fields of the records returned by each call. The
// api is free to add fields, anything not listed here is shown
// as undocumented by the probes.
var (
	SchoolYearFields = []string{"id", "name", "startDate", "endDate"}
	KlasseFields     = []string{"id", "name", "longName", "active", "did"}
	TeacherFields    = []string{"id", "name", "foreName", "longName", "foreColor", "backColor"}
	SubjectFields    = []string{"id", "name", "longName", "alternateName", "active"}
	RoomFields       = []string{"id", "name", "longName", "active", "building"}
	HolidayFields    = []string{"id", "name", "longName", "startDate", "endDate"}
	TimegridFields   = []string{"day", "timeUnits"}
	StudentFields    = []string{"id", "key", "name", "foreName", "longName", "gender"}

	PeriodFields = []string{
		"id", "date", "startTime", "endTime",
		"kl", "te", "su", "ro",
		"lstype", "code", "lstext", "statflags", "activityType",
	}
	ExtendedPeriodFields = append(append([]string{}, PeriodFields...),
		"lsnumber", "substText", "info", "sg", "bkRemark", "bkText",
	)
	AbsencePeriodFields = []string{
		"id", "date", "startTime", "endTime",
		"studentId", "subjectId", "teacherIds", "lessonId",
		"absenceTime", "absentTime", "excuseStatus",
	}
	ExamFields = []string{
		"id", "examType", "name", "date", "startTime", "endTime",
		"subject", "classes", "teachers", "students", "rooms", "text",
	}
	SubstitutionFields = []string{
		"type", "lsid", "date", "startTime", "endTime",
		"kl", "te", "su", "ro", "txt", "reschedule",
	}
)

// Fields that carry status information about a period or
// substitution.
var (
	PeriodIndicators       = []string{"code", "lstext", "statflags", "activityType", "lstype"}
	ExtendedIndicators     = []string{"code", "lstext", "statflags", "activityType", "lstype", "substText", "info"}
	AbsenceIndicators      = []string{"absenceTime", "absentTime", "excuseStatus"}
	SubstitutionIndicators = []string{"type", "txt"}
)

// absenceKeywords are looked for in every value of the period
// records to find absences the schema does not know about.
var absenceKeywords = []string{"absen"}
