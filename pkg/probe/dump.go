package probe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harrybrwn/errs"
)

const (
	inaccessible = "<inaccessible>"

	// maxIndicatorLines caps the per-record indicator lines printed
	// for a single probe.
	maxIndicatorLines = 20
)

// dump prints the documented fields of the first few records.
func (r *Runner) dump(p *Probe, records []Record) {
	n := r.limit()
	if n > len(records) {
		n = len(records)
	}
	for i := 0; i < n; i++ {
		rec := records[i]
		fmt.Fprintf(r.Out, "   record %d:\n", i+1)
		if rec == nil {
			fmt.Fprintf(r.Out, "      %s\n", inaccessible)
			continue
		}
		fields := p.Fields
		if len(fields) == 0 {
			fields = sortedKeys(rec)
		}
		for _, f := range fields {
			fmt.Fprintf(r.Out, "      %s: %s\n", f, fieldString(rec, f))
		}
		if extra := undocumented(p.Fields, rec); len(extra) > 0 {
			fmt.Fprintf(r.Out, "      %s %s\n",
				r.Paint.Yellow("undocumented:"), strings.Join(extra, ", "))
		}
	}
}

// scan checks every record for status indicators and keyword mentions.
func (r *Runner) scan(p *Probe, records []Record, res *Result) {
	if len(p.Indicators) == 0 && len(p.Keywords) == 0 {
		return
	}
	var lines []string
	for i, rec := range records {
		if rec == nil {
			continue
		}
		if flags := indicators(rec, p.Indicators); len(flags) > 0 {
			res.Indicators++
			if len(lines) < maxIndicatorLines {
				lines = append(lines, fmt.Sprintf("record %d: %s", i+1, strings.Join(flags, ", ")))
			}
		}
		if mentions(rec, p.Keywords) {
			res.Mentions++
		}
	}

	if len(p.Indicators) > 0 {
		fmt.Fprintf(r.Out, "   status indicators: %d of %d %s\n",
			res.Indicators, len(records), plural(len(records), "record"))
		for _, l := range lines {
			fmt.Fprintf(r.Out, "      %s\n", l)
		}
		if more := res.Indicators - len(lines); more > 0 {
			fmt.Fprintf(r.Out, "      ... and %d more\n", more)
		}
	}
	if len(p.Keywords) > 0 {
		fmt.Fprintf(r.Out, "   records mentioning %s: %d\n",
			strings.Join(p.Keywords, "/"), res.Mentions)
	}
}

// safeField reads a field, turning a panic in the record into an error.
func safeField(rec Record, name string) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errs.New(fmt.Sprintf("field %s: %v", name, r))
		}
	}()
	return rec.Field(name)
}

// safeKeys lists the keys of a record, nil if the record panics.
func safeKeys(rec Record) (keys []string) {
	defer func() {
		if recover() != nil {
			keys = nil
		}
	}()
	return rec.Keys()
}

func fieldString(rec Record, name string) string {
	v, err := safeField(rec, name)
	if err != nil {
		return inaccessible
	}
	return formatValue(v)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	case json.Number:
		return val.String()
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func indicators(rec Record, fields []string) []string {
	var flags []string
	for _, f := range fields {
		v, err := safeField(rec, f)
		if err != nil || isEmpty(v) {
			continue
		}
		flags = append(flags, fmt.Sprintf("%s=%s", f, formatValue(v)))
	}
	return flags
}

func mentions(rec Record, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, k := range safeKeys(rec) {
		text := strings.ToLower(k)
		if v, err := safeField(rec, k); err == nil {
			text += " " + strings.ToLower(formatValue(v))
		}
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func isEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	case int:
		return val == 0
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	}
	return false
}

func undocumented(documented []string, rec Record) []string {
	if len(documented) == 0 {
		return nil
	}
	known := make(map[string]bool, len(documented))
	for _, f := range documented {
		known[f] = true
	}
	var extra []string
	for _, k := range sortedKeys(rec) {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	return extra
}

func sortedKeys(rec Record) []string {
	keys := append([]string(nil), safeKeys(rec)...)
	sort.Strings(keys)
	return keys
}
