package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/client"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/paneo/config"
	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/output"
	"github.com/jamesainslie/paneo/pkg/paneo/types"

	"github.com/jamesainslie/paneo/cmd/paneo/tui"
)

var copyCmd = &cobra.Command{
	Use:   "copy <root>:<path> <root>:<dir>",
	Short: "Copy an entry into a directory",
	Long: `Copy a file or directory into a directory, possibly in another root.

Directories are merged into existing ones. With --overwrite (the default)
conflicting entries are replaced; with --overwrite=false they are skipped.

By default a progress view follows the copy; Ctrl+C cancels it. With
--detach the job id is printed and the copy continues in the daemon.

Examples:
  paneo copy media:photos backup:            # Copy with progress
  paneo copy media:a.txt media:docs -n b.txt # Copy under a new name
  paneo copy -d media:photos backup:archive  # Start in the background
  paneo copy --overwrite=false media:x b:    # Keep existing entries`,
	Args: cobra.ExactArgs(2),
	RunE: runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().StringP("name", "n", "", "name at the destination (default: source name)")
	copyCmd.Flags().Bool("overwrite", true, "replace conflicting entries instead of skipping them")
	copyCmd.Flags().BoolP("detach", "d", false, "start the copy in the background and print the job id")
	copyCmd.Flags().Bool("sync", false, "copy without a job and print the result when done")
}

func runCopy(cmd *cobra.Command, args []string) error {
	from, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	to, err := parseLocation(args[1])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	detach, _ := cmd.Flags().GetBool("detach")
	sync, _ := cmd.Flags().GetBool("sync")
	if detach && sync {
		return errors.New("--detach and --sync cannot be combined")
	}

	cfg, err := loadedConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	ids, err := resolveLocations(ctx, c, from, to)
	if err != nil {
		return err
	}
	req := paneov1.CopyRequest{
		FromRootID:        ids[0],
		FromPath:          from.Path,
		ToRootID:          ids[1],
		ToDirPath:         to.Path,
		NewName:           name,
		OverwriteExisting: overwrite,
	}

	if sync {
		res, err := c.Copy(context.Background(), req)
		if err != nil {
			return err
		}
		return renderCopyResult(from, to, res)
	}

	jobID, err := c.StartCopy(ctx, req)
	if err != nil {
		return err
	}
	printVerbose("started job %s", jobID)

	if detach {
		if viper.GetString("output") == output.DefaultFormat {
			printInfo("Started copy job %s", jobID)
			printInfo("Follow it with: paneo job status %s", jobID)
			return nil
		}
		r := output.NewResult("Copy job", "Job")
		r.AddRow(jobID)
		r.Data = paneov1.StartCopyResponse{JobID: jobID}
		return render(r)
	}

	initCLILogging(cfg)
	logging.Get("cli").Info("following copy job", "job", jobID, "from", from.String(), "to", to.String())

	var job *paneov1.Job
	if getQuiet() || viper.GetString("output") != output.DefaultFormat {
		job, err = waitForJob(c, jobID, cfg.Client.PollInterval)
	} else {
		job, err = tui.RunCopy(c, jobID, fmt.Sprintf("Copy %s → %s", from, to), cfg.Client.PollInterval)
	}
	if err != nil {
		return err
	}
	return finishJob(from, to, job)
}

// initCLILogging sends CLI logs to the log file only; the terminal belongs to
// the progress view.
func initCLILogging(cfg *config.Config) {
	logCfg, err := cfg.Logging.Logging()
	if err != nil {
		return
	}
	logCfg.Quiet = true
	_ = logging.Init(logCfg)
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(c *client.Client, jobID string, interval time.Duration) (*paneov1.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		job, err := c.CopyStatus(ctx, jobID)
		cancel()
		if err != nil {
			return nil, err
		}
		if jobs.Status(job.Status).Terminal() {
			return job, nil
		}
		<-ticker.C
	}
}

// finishJob reports a terminal job and turns failure and cancellation into errors.
func finishJob(from, to location, job *paneov1.Job) error {
	if job == nil {
		return errors.New("copy job state unknown")
	}
	switch jobs.Status(job.Status) {
	case jobs.StatusCompleted:
		var res types.Result
		if job.Result != nil {
			res = *job.Result
		}
		return renderCopyResult(from, to, res)
	case jobs.StatusCanceled:
		return fmt.Errorf("job %s: %w", job.JobID, copier.ErrCanceled)
	case jobs.StatusFailed:
		return fmt.Errorf("job %s failed: %s", job.JobID, job.Error)
	default:
		printInfo("Copy job %s is still %s", job.JobID, job.Status)
		return nil
	}
}

func renderCopyResult(from, to location, res types.Result) error {
	r := output.NewResult("Copy complete", "Copied files", "Copied directories", "Skipped")
	r.Source = from.String() + " → " + to.String()
	r.AddRow(fmt.Sprint(res.CopiedFiles), fmt.Sprint(res.CopiedDirectories), fmt.Sprint(res.Skipped))
	r.Data = res
	return render(r)
}
