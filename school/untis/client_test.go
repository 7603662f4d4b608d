package untis

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/harrybrwn/untis-probe/pkg/probe"
)

const testSessionID = "0123456789ABCDEF"

// fakeServer is a minimal WebUntis JSON-RPC server.
type fakeServer struct {
	mu      sync.Mutex
	t       *testing.T
	results map[string]interface{}
	errors  map[string]*Error
	calls   []string
	params  map[string]map[string]interface{}
	school  string
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{
		t: t,
		results: map[string]interface{}{
			"authenticate": map[string]interface{}{
				"sessionId":  testSessionID,
				"personType": 5,
				"personId":   42,
				"klasseId":   7,
			},
		},
		errors: map[string]*Error{},
		params: map[string]map[string]interface{}{},
	}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != rpcPath {
		http.NotFound(w, r)
		return
	}
	var req struct {
		ID      string                 `json:"id"`
		Method  string                 `json:"method"`
		Params  map[string]interface{} `json:"params"`
		JSONRPC string                 `json:"jsonrpc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("could not decode request: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.JSONRPC != "2.0" {
		f.t.Errorf("wrong jsonrpc version %q", req.JSONRPC)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Method)
	f.params[req.Method] = req.Params
	f.school = r.URL.Query().Get("school")

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	cookie, err := r.Cookie(sessionCookie)
	switch {
	case req.Method != "authenticate" && (err != nil || cookie.Value != testSessionID):
		resp["error"] = &Error{Code: CodeNotAuthenticated, Message: "not authenticated"}
	case f.errors[req.Method] != nil:
		resp["error"] = f.errors[req.Method]
	default:
		res, ok := f.results[req.Method]
		if !ok {
			resp["error"] = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
		} else {
			resp["result"] = res
		}
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeServer) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeServer) paramsOf(method string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[method]
}

func testSession(t *testing.T, h http.Handler) *Session {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s := FromClient(strings.TrimPrefix(srv.URL, "http://"), "Demo School", "student", "secret", srv.Client())
	s.Scheme = "http"
	return s
}

func TestLogin(t *testing.T) {
	f := newFakeServer(t)
	s := testSession(t, f)
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	if !s.LoggedIn() {
		t.Error("session should be logged in")
	}
	if p := s.Person(); p.ID != 42 || p.Type != ElementStudent || p.KlasseID != 7 {
		t.Errorf("wrong person %+v", p)
	}
	f.mu.Lock()
	school := f.school
	f.mu.Unlock()
	if school != "Demo School" {
		t.Errorf("wrong school sent: %q", school)
	}
	params := f.paramsOf("authenticate")
	if params["user"] != "student" || params["password"] != "secret" || params["client"] != DefaultClientName {
		t.Errorf("wrong authenticate params: %v", params)
	}
	// logging in twice is a no-op
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	if f.count("authenticate") != 1 {
		t.Error("should only authenticate once")
	}
}

func TestLogin_Err(t *testing.T) {
	f := newFakeServer(t)
	f.errors["authenticate"] = &Error{Code: CodeBadCredentials, Message: "bad credentials"}
	s := testSession(t, f)
	err := s.Login()
	if err == nil {
		t.Fatal("expected an error")
	}
	var rpcErr *Error
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeBadCredentials {
		t.Errorf("expected a bad credentials error; got %v", err)
	}
	if rpcErr.Method != "authenticate" {
		t.Errorf("error should name the method: %q", rpcErr.Method)
	}
	if s.LoggedIn() {
		t.Error("should not be logged in")
	}
	if err = s.Close(); err != nil {
		t.Error(err)
	}
	if f.count("logout") != 0 {
		t.Error("should not log out without a session")
	}

	s = FromClient("", "", "u", "p", http.DefaultClient)
	if err = s.Login(); err == nil {
		t.Error("expected an error for an empty host")
	}
}

func TestClose(t *testing.T) {
	f := newFakeServer(t)
	f.results["logout"] = nil
	s := testSession(t, f)
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.LoggedIn() {
		t.Error("session should be logged out")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if f.count("logout") != 1 {
		t.Errorf("logout called %d times; want 1", f.count("logout"))
	}
}

func TestList(t *testing.T) {
	f := newFakeServer(t)
	f.results["getRooms"] = []interface{}{
		map[string]interface{}{"id": 1, "name": "R1", "longName": "Room 1", "active": true},
		map[string]interface{}{"id": 20261016, "name": "R2"},
	}
	s := testSession(t, f)
	if _, err := s.Rooms(); err != ErrNotLoggedIn {
		t.Errorf("expected ErrNotLoggedIn; got %v", err)
	}
	if f.count("getRooms")+f.count("authenticate") != 0 {
		t.Error("should not call the server before login")
	}
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	rooms, err := s.Rooms()
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms; want 2", len(rooms))
	}
	id, err := rooms[1].Field("id")
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := id.(json.Number); !ok || n.String() != "20261016" {
		t.Errorf("numbers should be kept as json numbers; got %#v", id)
	}
	if _, err = rooms[1].Field("longName"); err != probe.ErrNoField {
		t.Errorf("expected ErrNoField; got %v", err)
	}
}

func TestMethodNotFound(t *testing.T) {
	f := newFakeServer(t)
	s := testSession(t, f)
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	_, err := s.Holidays()
	if !errors.Is(err, ErrUnsupported) || !errors.Is(err, probe.ErrUnsupported) {
		t.Errorf("method not found should be unsupported; got %v", err)
	}
	if _, err = s.OwnAbsences(); err != ErrUnsupported {
		t.Errorf("own absences should be unsupported; got %v", err)
	}
}

func TestTimetableParams(t *testing.T) {
	f := newFakeServer(t)
	f.results["getTimetable"] = []interface{}{}
	f.results["getSubstitutions"] = []interface{}{}
	s := testSession(t, f)
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	w := Window{
		Start: time.Date(2026, time.October, 9, 0, 0, 0, 0, time.Local),
		End:   time.Date(2026, time.October, 30, 0, 0, 0, 0, time.Local),
	}
	if _, err := s.MyTimetable(w); err != nil {
		t.Fatal(err)
	}
	params := f.paramsOf("getTimetable")
	for key, want := range map[string]float64{"id": 42, "type": 5, "startDate": 20261009, "endDate": 20261030} {
		if params[key] != want {
			t.Errorf("wrong %s param: got %v; want %v", key, params[key], want)
		}
	}

	if _, err := s.TimetableExtended(w, 99); err != nil {
		t.Fatal(err)
	}
	opts, ok := f.paramsOf("getTimetable")["options"].(map[string]interface{})
	if !ok {
		t.Fatal("extended timetable should send options")
	}
	element := opts["element"].(map[string]interface{})
	if element["id"] != 99.0 || element["type"] != 5.0 {
		t.Errorf("wrong element %v", element)
	}
	if opts["showLsText"] != true {
		t.Error("should ask for lstext")
	}

	if _, err := s.Substitutions(w.Start); err != nil {
		t.Fatal(err)
	}
	params = f.paramsOf("getSubstitutions")
	if params["startDate"] != 20261009.0 || params["endDate"] != 20261009.0 {
		t.Errorf("substitutions should be for one day: %v", params)
	}
}

func TestMyTimetable_NoPerson(t *testing.T) {
	f := newFakeServer(t)
	f.results["authenticate"] = map[string]interface{}{"sessionId": testSessionID}
	s := testSession(t, f)
	if err := s.Login(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MyTimetable(NewWindow(time.Now(), 1, 1)); err != errNoPerson {
		t.Errorf("expected errNoPerson; got %v", err)
	}
}

func TestHTTPError(t *testing.T) {
	s := testSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<html><head><title>WebUntis: school not found</title></head><body><p>x</p></body></html>`))
	}))
	err := s.Login()
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected an *HTTPError; got %v", err)
	}
	if herr.Message != "WebUntis: school not found" {
		t.Errorf("wrong message %q", herr.Message)
	}
	if !strings.HasPrefix(herr.Error(), "authenticate: 404") {
		t.Errorf("wrong error string %q", herr.Error())
	}
}

func TestPageMessage(t *testing.T) {
	tests := []struct{ page, want string }{
		{"<html><head><title> Maintenance </title></head></html>", "Maintenance"},
		{"<html><body>\n<p>Service unavailable</p><p>try again later</p></body></html>", "Service unavailable"},
		{"", ""},
	}
	for _, tc := range tests {
		got := pageMessage(tc.page)
		if !strings.EqualFold(got, tc.want) {
			t.Errorf("pageMessage(%q) = %q; want %q", tc.page, got, tc.want)
		}
	}

	long := strings.Repeat("Schülerzugriff gesperrt ", 20)
	got := pageMessage("<html><body><p>" + long + "</p></body></html>")
	if !utf8.ValidString(got) {
		t.Errorf("message cut inside a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxMessage {
		t.Errorf("got %d runes; want %d", n, maxMessage)
	}
}
