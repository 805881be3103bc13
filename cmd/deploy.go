package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mergesync/internal/config"
	"mergesync/internal/deploy"
	"mergesync/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type deployFlags struct {
	source       string
	configPath   string
	remote       string
	port         int
	identity     string
	keepPrevious bool
	dryRun       bool
}

func newDeployCmd(a *app) *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:   "deploy [source]",
		Short: "Ship the source tree to a remote directory over ssh",
		Long: "Deploy archives every file the sync configuration does not exclude,\n" +
			"copies the archive to the remote host with scp and unpacks it there.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.source == "" && len(args) > 0 {
				flags.source = args[0]
			}
			if flags.source == "" {
				return model.ConfigErrorf("--source is required")
			}
			if flags.configPath == "" {
				flags.configPath = envConfig()
			}

			cfg, err := config.LoadSyncConfig(flags.configPath)
			if err != nil {
				return err
			}

			plan, err := flags.plan(cmd, cfg.Deploy)
			if err != nil {
				return err
			}

			classifier, err := cfg.Classifier()
			if err != nil {
				return err
			}

			var runner deploy.Runner = deploy.ExecRunner{Log: a.log()}
			recorder := &deploy.RecordingRunner{}
			if flags.dryRun {
				runner = recorder
			}

			d := deploy.NewDeployer(deploy.Options{
				Archiver:   deploy.TarArchiver{Runner: runner},
				Transport:  deploy.SSHTransport{Runner: runner},
				Classifier: classifier,
				Logger:     a.log(),
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := d.Deploy(ctx, plan)
			out := cmd.OutOrStdout()
			if flags.dryRun {
				printCalls(out, recorder.Calls())
			}
			if err != nil {
				if res.Output != "" {
					_, _ = fmt.Fprint(cmd.ErrOrStderr(), res.Output)
				}
				return err
			}

			a.log().Debug("deploy result",
				zap.String("archive", res.RemoteArchive),
				zap.String("previous", res.PreviousDir))

			verb := "deployed"
			if flags.dryRun {
				verb = "would deploy"
			}
			_, _ = fmt.Fprintf(out, "%s %d files to %s\n", verb, res.Files, plan.Remote)
			if res.PreviousDir != "" {
				_, _ = fmt.Fprintf(out, "previous release kept at %s\n", res.PreviousDir)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&flags.source, "source", "s", "", "directory to deploy")
	fl.StringVarP(&flags.configPath, "config", "c", "", "sync configuration file (JSON)")
	fl.StringVarP(&flags.remote, "remote", "r", "", "target as [user@]host:/dir, overrides the config")
	fl.IntVar(&flags.port, "ssh-port", 0, "ssh port")
	fl.StringVarP(&flags.identity, "identity", "i", "", "ssh identity file")
	fl.BoolVar(&flags.keepPrevious, "keep-previous", false, "move the current remote directory aside first")
	fl.BoolVarP(&flags.dryRun, "dry-run", "n", false, "print the commands instead of running them")

	return cmd
}

// plan merges the config's deploy section with command line overrides.
func (f *deployFlags) plan(cmd *cobra.Command, dc config.DeployConfig) (deploy.Plan, error) {
	remote := deploy.RemoteSpec{
		User:         dc.User,
		Host:         dc.Host,
		Port:         dc.Port,
		Dir:          dc.RemoteDir,
		IdentityFile: dc.IdentityFile,
		Options:      dc.SSHOptions,
	}

	if f.remote != "" {
		parsed, err := deploy.ParseRemote(f.remote)
		if err != nil {
			return deploy.Plan{}, model.ConfigErrorf("%v", err)
		}
		remote.User, remote.Host, remote.Dir = parsed.User, parsed.Host, parsed.Dir
	}
	if f.port != 0 {
		remote.Port = f.port
	}
	if f.identity != "" {
		remote.IdentityFile = f.identity
	}

	keep := dc.KeepPrevious
	if cmd.Flags().Changed("keep-previous") {
		keep = f.keepPrevious
	}

	return deploy.Plan{
		Source:       f.source,
		Remote:       remote,
		KeepPrevious: keep,
		ArchiveName:  dc.ArchiveName,
	}, nil
}

func printCalls(w io.Writer, calls [][]string) {
	for _, c := range calls {
		_, _ = fmt.Fprintln(w, "+ "+deploy.CommandLine(c))
	}
}
