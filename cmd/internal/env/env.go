// Package env resolves the credentials used to log into WebUntis.
//
// Values come from the process environment first. A .env file found
// in the working directory (or next to the executable) or one of
// their parents fills in whatever the environment does not set.
package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrybrwn/errs"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// DefaultFilename is the name of the override file.
const DefaultFilename = ".env"

const prefix = "UNTIS"

// Credential keys
const (
	KeyServer   = "UNTIS_BASE_SERVER"
	KeySchool   = "UNTIS_SCHOOL"
	KeyUsername = "UNTIS_USERNAME"
	KeyPassword = "UNTIS_PASSWORD"
)

// Required lists the credential keys in the order they are checked.
var Required = []string{KeyServer, KeySchool, KeyUsername, KeyPassword}

// ErrNotFound is returned by Find when no file exists.
var ErrNotFound = errs.New("no env file found")

// Credentials hold everything needed to log in.
type Credentials struct {
	Server   string `yaml:"server"`
	School   string `yaml:"school"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Masked returns a copy of the credentials with the
// password hidden.
func (c Credentials) Masked() Credentials {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}

// MissingError is returned when a required key is not set.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variable '%s' "+
		"(export it or add it to a %s file)", e.Key, DefaultFilename)
}

// Loader finds the env file and resolves the credentials.
type Loader struct {
	Fs afero.Fs
	// Filename is the env file name searched for.
	Filename string
	// Dirs are the directories where the search starts. Each
	// one is searched up to the file system root.
	Dirs []string

	used string
}

// NewLoader creates a loader that searches the working directory
// and the executable's directory.
func NewLoader() *Loader {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return &Loader{
		Fs:       afero.NewOsFs(),
		Filename: DefaultFilename,
		Dirs:     dirs,
	}
}

// FileUsed returns the env file read by the last call to Load.
func (l *Loader) FileUsed() string { return l.used }

// Load resolves the credentials. Any missing key is reported
// before anything else happens.
func (l *Loader) Load() (*Credentials, error) {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()

	l.used = ""
	file, err := l.find()
	switch err {
	case nil:
		vars, err := ReadFile(l.Fs, file)
		if err != nil {
			return nil, err
		}
		l.used = file
		for key, val := range vars {
			if name, ok := viperKey(key); ok {
				// defaults lose against the environment
				v.SetDefault(name, val)
			}
		}
	case ErrNotFound:
	default:
		return nil, err
	}

	values := make(map[string]string, len(Required))
	for _, key := range Required {
		name, _ := viperKey(key)
		val := strings.TrimSpace(v.GetString(name))
		if val == "" {
			return nil, &MissingError{Key: key}
		}
		values[key] = val
	}
	return &Credentials{
		Server:   NormalizeServer(values[KeyServer]),
		School:   NormalizeSchool(values[KeySchool]),
		Username: values[KeyUsername],
		Password: values[KeyPassword],
	}, nil
}

func (l *Loader) find() (string, error) {
	name := l.Filename
	if name == "" {
		name = DefaultFilename
	}
	if filepath.IsAbs(name) {
		if _, err := l.Fs.Stat(name); err != nil {
			return "", errors.Wrap(err, "env file")
		}
		return name, nil
	}
	for _, dir := range l.Dirs {
		file, err := Find(l.Fs, dir, name)
		if err == nil {
			return file, nil
		}
	}
	return "", ErrNotFound
}

// Find searches dir and each of its parents for a file called name.
func Find(fs afero.Fs, dir, name string) (string, error) {
	dir = filepath.Clean(dir)
	for {
		file := filepath.Join(dir, name)
		if info, err := fs.Stat(file); err == nil && !info.IsDir() {
			return file, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// ReadFile reads an env file.
func ReadFile(fs afero.Fs, filename string) (map[string]string, error) {
	f, err := fs.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open env file")
	}
	defer f.Close()
	vars, err := Parse(f)
	if err != nil {
		return nil, errors.WithMessage(err, filename)
	}
	return vars, nil
}

// Parse reads KEY=VALUE lines. Blank lines, comments and lines
// without '=' are skipped. The first value given for a key wins.
func Parse(r io.Reader) (map[string]string, error) {
	var (
		vars    = make(map[string]string)
		scanner = bufio.NewScanner(r)
		lineno  = 0
	)
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		if strings.TrimSpace(line[:strings.Index(line, "=")]) == "" {
			continue
		}
		parsed, err := godotenv.Parse(strings.NewReader(line))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		for key, val := range parsed {
			if _, ok := vars[key]; !ok {
				vars[key] = val
			}
		}
	}
	return vars, scanner.Err()
}

// NormalizeServer strips the scheme and any path separators
// from a server name.
func NormalizeServer(server string) string {
	server = strings.TrimSpace(server)
	server = strings.TrimPrefix(server, "https://")
	server = strings.TrimPrefix(server, "http://")
	return strings.TrimRight(server, "/")
}

// NormalizeSchool turns a '+' separated school name back into
// spaces. The name is query-encoded when it is sent.
func NormalizeSchool(school string) string {
	return strings.ReplaceAll(strings.TrimSpace(school), "+", " ")
}

func viperKey(key string) (string, bool) {
	if !strings.HasPrefix(key, prefix+"_") {
		return "", false
	}
	return strings.ToLower(strings.TrimPrefix(key, prefix+"_")), true
}
