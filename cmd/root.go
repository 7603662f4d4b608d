package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrybrwn/config"
	"github.com/harrybrwn/errs"
	"github.com/harrybrwn/untis-probe/cmd/commands"
	"github.com/harrybrwn/untis-probe/cmd/internal"
	"github.com/harrybrwn/untis-probe/cmd/internal/opts"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var version string

// Logger for the cmd package
var Logger = &lumberjack.Logger{
	Filename:   filepath.Join(os.TempDir(), "untis-probe.log"),
	MaxSize:    10, // megabytes
	MaxBackups: 5,  // number of spare files
	MaxAge:     90, // days
	Compress:   false,
}

// Stop will print to stderr and exit with the code carried
// by the error.
func Stop(err error) {
	commands.Log.WithError(err).Error("exiting")
	errorMessage(err)
	Logger.Close()
	os.Exit(internal.ExitCode(err))
}

// Execute will execute the root comand on the cli
func Execute() (err error) {
	log := commands.Log
	log.SetOutput(Logger)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	config.SetFilename("config.yml")
	config.SetType("yaml")
	config.AddPath("$UNTIS_PROBE_CONFIG")
	config.AddDefaultDirs("untis-probe")
	config.SetConfig(commands.Conf)

	err = config.ReadConfigFile()
	switch err {
	case nil:
		break
	case config.ErrNoConfigDir, config.ErrNoConfigFile:
		log.Debug(err)
	default:
		return &internal.Error{Msg: errors.Wrap(err, "config").Error(), Code: commands.CodeConfig}
	}

	configfile := config.FileUsed()
	if configfile != "" {
		Logger.Filename = filepath.Join(filepath.Dir(configfile), "logs", "untis-probe.log")
	}

	globalFlags := opts.Global{}
	run := commands.NewRunCmd(&globalFlags)
	root := &cobra.Command{
		Use:           "untis-probe",
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
		Short:         "Probe a WebUntis server and show what it returns.",
		Long:          run.Long,
		Example:       run.Example,
		RunE:          run.RunE,
		PersistentPreRun: func(*cobra.Command, []string) {
			rootPreRun(&globalFlags)
		},
	}
	root.Flags().AddFlagSet(run.Flags())
	globalFlags.AddToFlagSet(root.PersistentFlags())

	root.SetUsageTemplate(commandTemplate)
	root.AddCommand(append(
		commands.All(&globalFlags),
		completionCmd,
	)...)
	return root.Execute()
}

func rootPreRun(globals *opts.Global) {
	if globals.Verbose {
		commands.Log.SetOutput(io.MultiWriter(Logger, os.Stderr))
		commands.Log.SetLevel(logrus.DebugLevel)
	}
	if f := config.FileUsed(); f != "" {
		commands.Log.WithField("file", f).Debug("using config file")
	}
}

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Print a completion script to stdout.",
	Long: `Use the completion command to generate a script for shell
completion. Note: for zsh you will need to use the command
'compdef _untis-probe untis-probe' after you source the generated script.`,
	Example:   "$ source <(untis-probe completion zsh)",
	ValidArgs: []string{"zsh", "bash", "ps", "powershell", "fish"},
	Aliases:   []string{"comp"},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		root := cmd.Root()
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			return errors.New("no shell type given")
		}
		switch args[0] {
		case "zsh":
			return root.GenZshCompletion(out)
		case "ps", "powershell":
			return root.GenPowerShellCompletion(out)
		case "bash":
			return root.GenBashCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, false)
		}
		return errs.New("unknown shell type")
	},
}

func errorMessage(err error) {
	switch internal.ExitCode(err) {
	case commands.CodeConfig:
		fmt.Fprintf(os.Stderr, "Configuration Error: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

var commandTemplate = `Usage:
{{if .Runnable}}
	{{.UseLine}}{{end}}{{if gt (len .Aliases) 0}}

Aliases:
	{{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
	{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
	{{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:

{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:

{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
	{{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
