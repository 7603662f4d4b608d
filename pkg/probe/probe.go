// Package probe runs a fixed list of read-only queries against one
// remote session and reports what each of them returned.
//
// A run moves through the states
//
//	NotConnected -> Connected -> (Probing -> Reported)* -> Disconnected
//
// and the session is closed exactly once, also when the login fails.
package probe

import (
	"fmt"
	"time"

	"github.com/harrybrwn/errs"
)

var (
	// ErrUnsupported is returned by a query that the remote
	// service (or the client) does not offer.
	ErrUnsupported = errs.New("operation not available")

	// ErrNoField is returned by Record.Field when the record does
	// not carry the field.
	ErrNoField = errs.New("no such field")
)

// Session is an authenticated handle to a remote service.
type Session interface {
	Login() error
	Close() error
}

// Record is one opaque value returned by a query. Every field
// access may fail.
type Record interface {
	// Field returns the value of a field or an error if the
	// field cannot be accessed.
	Field(name string) (interface{}, error)
	// Keys lists the fields the record carries.
	Keys() []string
}

// Query is a single read-only remote operation.
type Query func() ([]Record, error)

// Probe is a named query together with what we know about
// the shape of its records.
type Probe struct {
	Name string
	// Fields is the documented field list dumped for each record.
	Fields []string
	// Indicators are fields that carry status information. Every
	// record is checked for non-empty values in these fields.
	Indicators []string
	// Keywords are searched for in the string values of every record.
	Keywords []string
	Query    Query
	// Note is called after the query and its result, if not empty,
	// is printed below the status line.
	Note func() string
}

// Result is the outcome of one probe.
type Result struct {
	Name        string
	Count       int
	Err         error
	Unsupported bool
	// Indicators is the number of records with at least one
	// non-empty indicator field.
	Indicators int
	// Mentions is the number of records mentioning one of the
	// probe's keywords.
	Mentions int
	Elapsed  time.Duration
}

// OK returns true if the probe returned without an error.
func (r *Result) OK() bool { return r.Err == nil }

// Status returns a short status word for the result.
func (r *Result) Status() string {
	switch {
	case r.Unsupported:
		return "unavailable"
	case r.Err != nil:
		return "failed"
	default:
		return "ok"
	}
}

// Report is the ordered list of probe results of a run.
type Report struct {
	Results []*Result
}

// Failed returns the number of probes that returned an error,
// not counting unsupported ones.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil && !res.Unsupported {
			n++
		}
	}
	return n
}

// Get finds a result by probe name.
func (r *Report) Get(name string) *Result {
	for _, res := range r.Results {
		if res.Name == name {
			return res
		}
	}
	return nil
}

// State is the state of a Runner.
type State int

// Runner states
const (
	NotConnected State = iota
	Connected
	Probing
	Reported
	Disconnected
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "not connected"
	case Connected:
		return "connected"
	case Probing:
		return "probing"
	case Reported:
		return "reported"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LoginError is returned by Run when the session could not be opened.
type LoginError struct {
	Err error
}

func (e *LoginError) Error() string {
	return "login failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *LoginError) Unwrap() error { return e.Err }
