package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kinetix3d/kinetix"
)

const (
	exitOK      = 0
	exitPhysics = 1
	exitConfig  = 2
	exitIO      = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		ticks uint64
		out   string
		debug bool
	)

	runCmd := &cobra.Command{
		Use:   "run <snapshot>",
		Short: "Advance a snapshot through its event stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, argv []string) error {
			return runSimulation(argv[0], ticks, out, debug)
		},
	}
	runCmd.Flags().Uint64Var(&ticks, "ticks", 0, "collision budget (0 = use the snapshot's)")
	runCmd.Flags().StringVar(&out, "out", "", "destination snapshot document")
	runCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	root := &cobra.Command{
		Use:           "kinetix",
		Short:         "Event-driven hard-particle dynamics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kinetix: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func runSimulation(snapshotPath string, ticks uint64, out string, debug bool) error {
	log := kinetix.NewDefaultLogger("kinetix", debug)

	doc, err := kinetix.LoadSnapshotFile(snapshotPath)
	if err != nil {
		return err
	}
	if ticks > 0 {
		doc.Properties.MaxCollisions = ticks
	}

	s, err := kinetix.BuildSim(doc, log)
	if err != nil {
		return err
	}

	// SIGINT requests a cooperative stop; the loop exits between
	// events and the snapshot below is the last consistent state.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		<-sig
		s.Stop()
	}()

	runErr := s.Run()
	if runErr == nil || errors.Is(runErr, kinetix.ErrShutdown) {
		log.Infof("run finished: t=%v, %d collisions", s.Time(), s.Collisions())
	} else {
		log.Errorf("run aborted: %v", runErr)
	}

	// The last consistent state goes out even after a failure.
	if out != "" {
		final, capErr := kinetix.CaptureSnapshot(s)
		if capErr == nil {
			capErr = kinetix.WriteSnapshotFile(out, final)
		}
		if capErr != nil {
			if runErr == nil {
				return capErr
			}
			log.Errorf("could not write final snapshot: %v", capErr)
		}
	}
	return runErr
}

func exitCode(err error) int {
	if errors.Is(err, kinetix.ErrShutdown) {
		return exitOK
	}
	var cfg *kinetix.ConfigError
	if errors.As(err, &cfg) {
		return exitConfig
	}
	var phys *kinetix.PhysicsError
	if errors.As(err, &phys) {
		return exitPhysics
	}
	var capa *kinetix.CapacityError
	if errors.As(err, &capa) {
		return exitPhysics
	}
	return exitIO
}
