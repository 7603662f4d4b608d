// Package untis is a small client for the WebUntis JSON-RPC api.
//
// It only covers the read-only calls needed to probe a server
// and returns every result as loosely typed records.
package untis

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"github.com/harrybrwn/errs"
	"github.com/harrybrwn/untis-probe/pkg/probe"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

const (
	rpcPath = "/WebUntis/jsonrpc.do"

	// DefaultClientName is sent as the client name on login
	// and as the User-Agent header.
	DefaultClientName = "untis-probe"

	sessionCookie = "JSESSIONID"
)

// Element types used by the timetable calls.
const (
	ElementKlasse  = 1
	ElementTeacher = 2
	ElementSubject = 3
	ElementRoom    = 4
	ElementStudent = 5
)

// Person is the timetable element attached to the logged in account.
type Person struct {
	ID       int
	Type     int
	KlasseID int
}

// Session is a WebUntis session. It is not safe for
// concurrent use.
type Session struct {
	Host     string
	School   string
	Username string
	// ClientName identifies this program to the server.
	ClientName string
	// Scheme defaults to https.
	Scheme string

	password  string
	client    *http.Client
	sessionID string
	person    Person
	reqID     int
}

// New creates a session that uses an http client with a cookie jar.
func New(host, school, username, password string) *Session {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never returns an error
		panic(err)
	}
	return FromClient(host, school, username, password, &http.Client{Jar: jar})
}

// FromClient creates a session that uses a user given http.Client.
func FromClient(host, school, username, password string, c *http.Client) *Session {
	return &Session{
		Host:       host,
		School:     school,
		Username:   username,
		ClientName: DefaultClientName,
		Scheme:     "https",
		password:   password,
		client:     c,
	}
}

// Person returns the element attached to the logged in user.
func (s *Session) Person() Person { return s.person }

// LoggedIn returns true if the session holds a session id.
func (s *Session) LoggedIn() bool { return s.sessionID != "" }

// Login authenticates with the server. Calling Login on a
// session that is already logged in does nothing.
func (s *Session) Login() error {
	if s.LoggedIn() {
		return nil
	}
	if s.Host == "" || s.School == "" {
		return errs.New("host and school are required")
	}
	var res struct {
		SessionID  string `json:"sessionId"`
		PersonType int    `json:"personType"`
		PersonID   int    `json:"personId"`
		KlasseID   int    `json:"klasseId"`
	}
	err := s.call("authenticate", map[string]string{
		"user":     s.Username,
		"password": s.password,
		"client":   s.ClientName,
	}, &res)
	if err != nil {
		return err
	}
	if res.SessionID == "" {
		return errs.New("authenticate: no session id in response")
	}
	s.sessionID = res.SessionID
	s.person = Person{ID: res.PersonID, Type: res.PersonType, KlasseID: res.KlasseID}
	return nil
}

// Close logs out of the session. It does nothing if the
// session was never logged in.
func (s *Session) Close() error {
	if !s.LoggedIn() {
		return nil
	}
	err := s.call("logout", noParams, nil)
	s.sessionID = ""
	s.person = Person{}
	return err
}

var noParams = map[string]interface{}{}

type request struct {
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	JSONRPC string      `json:"jsonrpc"`
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

func (s *Session) endpoint() *url.URL {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     s.Host,
		Path:     rpcPath,
		RawQuery: url.Values{"school": {s.School}}.Encode(),
	}
}

func (s *Session) call(method string, params, result interface{}) error {
	s.reqID++
	body, err := json.Marshal(&request{
		ID:      strconv.Itoa(s.reqID),
		Method:  method,
		Params:  params,
		JSONRPC: "2.0",
	})
	if err != nil {
		return errors.Wrap(err, method)
	}
	req, err := http.NewRequest(http.MethodPost, s.endpoint().String(), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, method)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.ClientName)
	if s.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: s.sessionID})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, method)
	}
	defer resp.Body.Close()
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return newHTTPError(method, resp)
	}

	var r response
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err = dec.Decode(&r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &HTTPError{Method: method, Status: resp.Status}
		}
		return errors.Wrapf(err, "%s: could not decode response", method)
	}
	if r.Error != nil {
		r.Error.Method = method
		return r.Error
	}
	if result == nil || len(r.Result) == 0 {
		return nil
	}
	dec = json.NewDecoder(bytes.NewReader(r.Result))
	dec.UseNumber()
	return errors.Wrapf(dec.Decode(result), "%s: could not decode result", method)
}

// list calls a method that returns a list of objects.
func (s *Session) list(method string, params interface{}) ([]probe.Record, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	var raw interface{}
	if err := s.call(method, params, &raw); err != nil {
		return nil, err
	}
	return toRecords(raw), nil
}
