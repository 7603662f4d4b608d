package commands

import (
	"fmt"
	"strings"

	"github.com/harrybrwn/config"
	"github.com/harrybrwn/untis-probe/cmd/internal"
	"github.com/harrybrwn/untis-probe/cmd/internal/env"
	"github.com/harrybrwn/untis-probe/cmd/internal/opts"
	"github.com/harrybrwn/untis-probe/school/untis"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// Config holds the settings read from the config file.
type Config struct {
	UserAgent string `config:"user_agent" yaml:"user_agent"`
	Limit     int    `config:"limit" yaml:"limit"`
	DaysBack  int    `config:"days_back" yaml:"days_back"`
	DaysAhead int    `config:"days_ahead" yaml:"days_ahead"`
	ExamDays  int    `config:"exam_days" yaml:"exam_days"`
	Student   int    `config:"student" yaml:"student,omitempty"`
	EnvFile   string `config:"env_file" yaml:"env_file,omitempty"`
	Notify    bool   `config:"notify" yaml:"notify"`
}

// Conf is the global config struct. The config file is
// read into it before any command is created.
var Conf = &Config{
	UserAgent: untis.DefaultClientName,
	Limit:     3,
	DaysBack:  7,
	DaysAhead: 14,
	ExamDays:  90,
}

// Log is the logger used by all commands.
var Log = logrus.New()

// All returns all the commands.
func All(globals *opts.Global) []*cobra.Command {
	return []*cobra.Command{
		NewRunCmd(globals),
		newProbesCmd(globals),
		newConfigCmd(),
	}
}

func newProbesCmd(globals *opts.Global) *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "probes",
		Short: "List the probes and the fields they document",
		Long: `List the probes in the order they are run. Nothing is
sent to the server.`,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			probes := untis.Probes(untis.New("", "", "", ""), untis.ProbeConfig{})
			tab := internal.NewTable(cmd.OutOrStdout())
			header := []string{"#", "name", "fields"}
			if verbose {
				header = append(header, "indicators")
			}
			internal.SetTableHeader(tab, header, !globals.NoColor)
			for i, p := range probes {
				fields := strings.Join(p.Fields, ", ")
				if len(p.Fields) == 0 {
					fields = "-"
				}
				row := []string{fmt.Sprintf("%d", i+1), p.Name, fields}
				if verbose {
					row = append(row, strings.Join(p.Indicators, ", "))
				}
				tab.Append(row)
			}
			tab.Render()
			return nil
		},
	}
	c.Flags().BoolVarP(&verbose, "indicators", "i", false, "also show the status indicator fields")
	return c
}

// settings is what the config command prints.
type settings struct {
	Config      *Config          `yaml:"config"`
	ConfigFile  string           `yaml:"config_file"`
	EnvFile     string           `yaml:"env_file"`
	Credentials *env.Credentials `yaml:"credentials,omitempty"`
	Error       string           `yaml:"error,omitempty"`
}

func newConfigCmd() *cobra.Command {
	var file bool
	c := &cobra.Command{
		Use:     "config",
		Short:   "Show the resolved settings",
		Long: `Show the settings from the config file and the credentials
resolved from the environment and the .env file. The password
is never printed.`,
		Aliases: []string{"conf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if file {
				fmt.Fprintln(cmd.OutOrStdout(), config.FileUsed())
				return nil
			}
			loader := newLoader(Conf.EnvFile)
			s := settings{Config: Conf, ConfigFile: config.FileUsed()}
			creds, err := loadCredentials(loader)
			if err != nil {
				s.Error = err.Error()
			} else {
				masked := creds.Masked()
				s.Credentials = &masked
			}
			s.EnvFile = loader.FileUsed()
			raw, err := yaml.Marshal(&s)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
	c.Flags().BoolVarP(&file, "file", "f", false, "print the config file path")
	return c
}

func newLoader(envfile string) *env.Loader {
	l := env.NewLoader()
	if envfile != "" {
		l.Filename = envfile
	}
	return l
}
