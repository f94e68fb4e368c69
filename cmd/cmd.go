// Package cmd implements svcctl, the command line front end for installing,
// configuring and controlling Windows services.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/svcctl/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "svcctl",
		HelpName:              "svcctl",
		Usage:                 "Install, configure and control Windows services.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "svcctl [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Before:                setup,
		After:                 teardown,
		Commands:              commands(),
		HideVersion:           true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}

func commands() []cli.Command {
	return []cli.Command{
		{
			Name:               "install",
			Usage:              "create a service",
			ArgsUsage:          "<name>",
			Description:        InstallDescription,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             install,
			Flags:              installFlags,
		},
		{
			Name:               "uninstall",
			Aliases:            []string{"delete"},
			Usage:              "stop and delete a service",
			ArgsUsage:          "<name>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             uninstall,
			Flags:              uninstallFlags,
		},
		{
			Name:               "start",
			Usage:              "start a service",
			ArgsUsage:          "<name> [arguments...]",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             start,
			Flags:              waitFlags,
		},
		{
			Name:               "stop",
			Usage:              "stop a service",
			ArgsUsage:          "<name>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             stop,
			Flags:              waitFlags,
		},
		{
			Name:               "pause",
			Usage:              "pause a running service",
			ArgsUsage:          "<name>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             pause,
			Flags:              waitFlags,
		},
		{
			Name:               "resume",
			Aliases:            []string{"continue"},
			Usage:              "resume a paused service",
			ArgsUsage:          "<name>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             resume,
			Flags:              waitFlags,
		},
		{
			Name:               "notify",
			Usage:              "send a user-defined control code (128-255)",
			ArgsUsage:          "<name> <code>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             notify,
		},
		{
			Name:               "status",
			Aliases:            []string{"s"},
			Usage:              "show the current status of a service",
			ArgsUsage:          "<name>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             status,
		},
		{
			Name:               "config",
			Usage:              "show or export the configuration of a service",
			ArgsUsage:          "<name>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             showConfig,
			Flags:              configFlags,
		},
		{
			Name:  "failure-actions",
			Usage: "show or change what the SCM does when a service fails",
			Subcommands: []cli.Command{
				{
					Name:               "get",
					Usage:              "show the failure actions",
					ArgsUsage:          "<name>",
					CustomHelpTemplate: CMD_HELP_TEMPL,
					Action:             failureActionsGet,
				},
				{
					Name:               "set",
					Usage:              "change the failure actions",
					ArgsUsage:          "<name>",
					Description:        FailureActionsDescription,
					CustomHelpTemplate: CMD_HELP_TEMPL,
					OnUsageError:       common.UsageErrorCallback,
					Action:             failureActionsSet,
					Flags:              failureActionsFlags,
				},
			},
		},
		{
			Name:               "describe",
			Usage:              "set the description of a service",
			ArgsUsage:          "<name> <text>",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             describe,
		},
		{
			Name:               "probe",
			Usage:              "query the status endpoint of a running probe service",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             probeStatus,
			Flags:              probeFlags,
		},
		{
			Name:               "history",
			Usage:              "list recorded administrative operations",
			ArgsUsage:          "[name]",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			OnUsageError:       common.UsageErrorCallback,
			Action:             history,
			Flags:              historyFlags,
		},
		{
			Name:    "help",
			Aliases: []string{"h"},
			Usage:   "prints the help message",
			Action:  common.Help,
		},
		{
			Name:               "version",
			Aliases:            []string{"v"},
			Usage:              "prints installed version of svcctl",
			UsageText:          " ",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             common.GetVersion,
		},
	}
}
