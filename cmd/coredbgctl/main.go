package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"

	sys "golang.org/x/sys/unix"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coredbg/coredbg/pkg/config"
	"github.com/coredbg/coredbg/pkg/logflags"
	"github.com/coredbg/coredbg/pkg/proc"
	"github.com/coredbg/coredbg/pkg/proc/native"
)

var (
	logEnabled bool
	logOutput  string
	cwd        string
	tty        string
)

func main() {
	rootCommand := &cobra.Command{
		Use:   "coredbgctl",
		Short: "Thin diagnostic CLI over the process-control engine.",
	}
	rootCommand.PersistentFlags().BoolVarP(&logEnabled, "log", "", false, "Enable engine logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of engine layers to log.")

	launchCommand := &cobra.Command{
		Use:   "launch <path> [args...]",
		Short: "Launch a program under trace and run it to exit.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(func(s *native.Session) error {
				return s.Open(args[0], cwd, args[1:], tty)
			})
		},
	}
	launchCommand.Flags().StringVar(&cwd, "cwd", "", "Working directory for the launched program.")
	launchCommand.Flags().StringVar(&tty, "tty", "", "Alternate tty for the launched program's stdio.")
	rootCommand.AddCommand(launchCommand)

	attachCommand := &cobra.Command{
		Use:   "attach <pid>",
		Short: "Attach to a running process and run until detach.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q: %w", args[0], err)
			}
			return runSession(func(s *native.Session) error {
				return s.Attach(proc.ProcessId(pid))
			})
		},
	}
	rootCommand.AddCommand(attachCommand)

	psCommand := &cobra.Command{
		Use:   "ps",
		Short: "List processes visible under /proc.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := native.NewSession(hostArch())
			defer s.Close()
			procs, err := s.EnumerateProcesses()
			if err != nil {
				return err
			}
			for pid, info := range procs {
				fmt.Printf("%8d %8d %-12s %s\n", pid, info.Uid, info.User, info.Name)
			}
			return nil
		},
	}
	rootCommand.AddCommand(psCommand)

	var flagsCommand *cobra.Command
	flagsCommand = &cobra.Command{
		Use:   "flags",
		Short: "List every flag registered on the root command and its subcommands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			printFlagSet("global", rootCommand.PersistentFlags())
			for _, sub := range rootCommand.Commands() {
				if sub == flagsCommand {
					continue
				}
				printFlagSet(sub.Name(), sub.Flags())
			}
			return nil
		},
	}
	rootCommand.AddCommand(flagsCommand)

	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printFlagSet dumps one flag set's registered flags for diagnostics,
// in the style of cmd/dlv's own flag-help walker.
func printFlagSet(group string, flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		fmt.Printf("%-10s --%-14s %-8s default=%q  %s\n", group, flag.Name, flag.Value.Type(), flag.DefValue, flag.Usage)
	})
}

func hostArch() proc.Arch {
	if runtime.GOARCH == "386" {
		return proc.Arch386
	}
	return proc.ArchAMD64
}

// runSession wires the engine config and log layers, opens a session
// via start, then drains debug events until the debuggee exits or the
// user interrupts, detaching cleanly on Ctrl-C.
func runSession(start func(*native.Session) error) error {
	conf := config.LoadConfig()
	enabled, layers := logEnabled, logOutput
	if layers == "" && conf != nil && len(conf.LogLayers) > 0 {
		enabled, layers = true, strings.Join(conf.LogLayers, ",")
	}
	if err := logflags.Setup(enabled, layers); err != nil {
		return err
	}

	s := native.NewSession(hostArch())
	defer s.Close()

	if err := start(s); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sys.SIGINT)

	timeoutMs := int(conf.EventPumpTimeout().Milliseconds())
	for {
		select {
		case <-sigCh:
			fmt.Println("interrupted, detaching")
			return s.Detach()
		default:
		}

		ev, err := s.WaitDebugEvent(timeoutMs)
		if err != nil {
			return err
		}
		if ev == nil {
			continue
		}
		fmt.Printf("event: pid=%d tid=%d status=%#x signal=%d\n", ev.Pid, ev.Tid, ev.RawStatus, ev.SigInfo.Signal)

		if !s.HasThreads() {
			return nil
		}
		if err := s.Resume(proc.ContinueUnhandled); err != nil {
			return err
		}
	}
}
