package untis

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/harrybrwn/untis-probe/pkg/probe"
	"github.com/mitchellh/mapstructure"
)

// Record is a single object returned by the api.
type Record map[string]interface{}

// Field returns the value of a field.
func (r Record) Field(name string) (interface{}, error) {
	v, ok := r[name]
	if !ok {
		return nil, probe.ErrNoField
	}
	return v, nil
}

// Keys returns the names of all the record's fields.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}

var _ probe.Record = (Record)(nil)

// toRecords turns a decoded json result into records. Objects
// become records as they are, anything else is put under "value".
func toRecords(raw interface{}) []probe.Record {
	switch v := raw.(type) {
	case nil:
		return []probe.Record{}
	case []interface{}:
		recs := make([]probe.Record, 0, len(v))
		for _, item := range v {
			recs = append(recs, toRecord(item))
		}
		return recs
	default:
		return []probe.Record{toRecord(v)}
	}
}

func toRecord(v interface{}) Record {
	if m, ok := v.(map[string]interface{}); ok {
		return Record(m)
	}
	return Record{"value": v}
}

// SchoolYear is a school year as returned by getSchoolyears.
type SchoolYear struct {
	ID        int    `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	StartDate int    `mapstructure:"startDate"`
	EndDate   int    `mapstructure:"endDate"`
}

// Start returns the first day of the school year.
func (y *SchoolYear) Start() time.Time { return fromDateInt(y.StartDate) }

// End returns the last day of the school year.
func (y *SchoolYear) End() time.Time { return fromDateInt(y.EndDate) }

// Contains returns true if the day t falls into the school year.
func (y *SchoolYear) Contains(t time.Time) bool {
	d := dateInt(t)
	return d >= y.StartDate && d <= y.EndDate
}

func (y *SchoolYear) String() string {
	return fmt.Sprintf("%s (%s - %s)", y.Name,
		y.Start().Format("2006-01-02"), y.End().Format("2006-01-02"))
}

// DecodeSchoolYear decodes a record into a SchoolYear.
func DecodeSchoolYear(rec probe.Record) (*SchoolYear, error) {
	r, ok := rec.(Record)
	if !ok {
		return nil, fmt.Errorf("cannot decode %T as a school year", rec)
	}
	var y SchoolYear
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &y,
		DecodeHook:       mapstructure.DecodeHookFuncType(numberHook),
	})
	if err != nil {
		return nil, err
	}
	if err = dec.Decode(map[string]interface{}(r)); err != nil {
		return nil, err
	}
	if y.StartDate == 0 || y.EndDate == 0 || y.StartDate > y.EndDate {
		return nil, fmt.Errorf("school year %q has an invalid date range", y.Name)
	}
	return &y, nil
}

// CurrentYear finds the school year that contains the day now.
func CurrentYear(recs []probe.Record, now time.Time) (*SchoolYear, bool) {
	for _, rec := range recs {
		y, err := DecodeSchoolYear(rec)
		if err != nil {
			continue
		}
		if y.Contains(now) {
			return y, true
		}
	}
	return nil, false
}

// numberHook turns json numbers into int64 before mapstructure
// converts them to the struct field's type.
func numberHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	n, ok := data.(json.Number)
	if !ok || to.Kind() != reflect.Int {
		return data, nil
	}
	return n.Int64()
}

// Window is a range of days.
type Window struct {
	Start, End time.Time
}

// NewWindow creates a window around now.
func NewWindow(now time.Time, daysBack, daysAhead int) Window {
	return Window{
		Start: now.AddDate(0, 0, -daysBack),
		End:   now.AddDate(0, 0, daysAhead),
	}
}

// Clip shrinks the window to the school year. The window is
// left as it is when the two do not overlap.
func (w Window) Clip(y *SchoolYear) Window {
	if y == nil {
		return w
	}
	start, end := dateInt(w.Start), dateInt(w.End)
	if end < y.StartDate || start > y.EndDate {
		return w
	}
	if start < y.StartDate {
		w.Start = y.Start()
	}
	if end > y.EndDate {
		w.End = y.End()
	}
	return w
}

func (w Window) String() string {
	return fmt.Sprintf("%s - %s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// dateInt formats a day the way the api expects it, as yyyymmdd.
func dateInt(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func fromDateInt(d int) time.Time {
	return time.Date(d/10000, time.Month(d/100%100), d%100, 0, 0, 0, 0, time.Local)
}
