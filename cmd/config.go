package cmd

import (
	"time"

	"github.com/urfave/cli"
)

// Environment variables read by the global flags.
const (
	MachineEnv  = "SVCCTL_MACHINE"
	DatabaseEnv = "SVCCTL_DATABASE"
	JournalEnv  = "SVCCTL_JOURNAL"
	LogLevelEnv = "SVCCTL_LOG_LEVEL"
	PipeNameEnv = "SVCCTL_PIPE_NAME"
)

const (
	DEF_POLL_INTERVAL = 250 * time.Millisecond
	DEF_WAIT_TIMEOUT  = 2 * time.Minute
	DEF_PROBE_PIPE    = "svcctl-probe"
)

const DESCRIPTION = `
svcctl installs, configures and controls services registered with the
Windows Service Control Manager, locally or on a remote machine, and
keeps a journal of every change it makes.
`

const (
	InstallDescription = `The install command creates a service from flags or from a
JSON definition file. Settings given as flags override the file.

Example:
        svcctl install --exe C:\probe\probesvc.exe --start auto probe
        svcctl install --file probe.json

`
	FailureActionsDescription = `The set subcommand changes the failure policy. Only the
settings that are given are changed; an empty value clears them.

Example:
        svcctl failure-actions set --reset 24h --action restart/5s --action none probe
        svcctl failure-actions set --clear probe

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}{{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "machine, m",
		Usage:  "connect to the SCM of a remote machine",
		EnvVar: MachineEnv,
	},
	cli.StringFlag{
		Name:   "database",
		Usage:  "SCM database to open (default ServicesActive)",
		EnvVar: DatabaseEnv,
	},
	cli.StringFlag{
		Name:   "journal",
		Usage:  "path of the operation journal",
		EnvVar: JournalEnv,
	},
	cli.BoolFlag{
		Name:  "no-journal",
		Usage: "do not record operations",
	},
	cli.StringFlag{
		Name:   "log-level",
		Usage:  "minimum level logged: info, warning or error",
		EnvVar: LogLevelEnv,
		Value:  "warning",
	},
}
