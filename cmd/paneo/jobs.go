package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/paneo/output"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List copy jobs",
	Long:  `List every copy job the daemon has run since it started, oldest first.`,
	Args:  cobra.NoArgs,
	RunE:  runJobs,
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect or cancel a copy job",
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the state and progress of a copy job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobStatus,
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running copy job",
	Long: `Cancel a running copy job. The file being written is removed; entries
already copied stay in place. Canceling a finished job changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runJobCancel,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobCancelCmd)
}

func runJobs(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	list, err := c.ListJobs(ctx)
	if err != nil {
		return err
	}
	return render(jobsResult(list))
}

func jobsResult(list []paneov1.Job) *output.Result {
	r := output.NewResult("Copy jobs", "Job", "Status", "Progress", "From", "To", "Started")

	var running int
	for _, j := range list {
		if j.Status == "running" {
			running++
		}
		r.AddRow(
			j.JobID,
			j.Status,
			progressCell(j),
			j.Request.FromRootID+":"+j.Request.FromPath,
			j.Request.ToRootID+":"+j.Request.ToDirPath,
			humanize.Time(j.StartedAt),
		)
	}
	r.Summary = []string{fmt.Sprintf("%d jobs, %d running", len(list), running)}
	r.Data = list
	return r
}

// progressCell summarizes progress as "pct (files/total)".
func progressCell(j paneov1.Job) string {
	p := j.Progress
	pct, ok := p.Percent()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d%% (%d/%d)", pct, p.ProcessedFiles, p.TotalFiles)
}

func runJobStatus(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	job, err := c.CopyStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return render(jobResult(job))
}

func jobResult(job *paneov1.Job) *output.Result {
	r := output.NewResult("Copy job "+job.JobID, "Field", "Value")
	r.Source = job.Request.FromRootID + ":" + job.Request.FromPath + " → " + job.Request.ToRootID + ":" + job.Request.ToDirPath

	p := job.Progress
	r.AddRow("Status", job.Status)
	r.AddRow("Progress", progressCell(*job))
	r.AddRow("Bytes", fmt.Sprintf("%s / %s",
		humanize.IBytes(uint64(max(p.ProcessedBytes, 0))), humanize.IBytes(uint64(max(p.TotalBytes, 0)))))
	r.AddRow("Copied", fmt.Sprint(p.CopiedFiles))
	r.AddRow("Skipped", fmt.Sprint(p.Skipped))
	if p.CurrentFile != "" && job.Status == "running" {
		r.AddRow("Current", p.CurrentFile)
	}
	r.AddRow("Started", job.StartedAt.Local().Format(time.DateTime))
	if job.FinishedAt != nil {
		r.AddRow("Finished", job.FinishedAt.Local().Format(time.DateTime))
	}
	if job.Result != nil {
		r.AddRow("Result", fmt.Sprintf("%d files, %d directories, %d skipped",
			job.Result.CopiedFiles, job.Result.CopiedDirectories, job.Result.Skipped))
	}
	if job.Error != "" {
		r.Warnings = append(r.Warnings, job.Error)
	}
	r.Data = job
	return r
}

func runJobCancel(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	status, err := c.CancelCopy(ctx, args[0])
	if err != nil {
		return err
	}
	printInfo("Job %s: %s", args[0], output.StatusStyle(status).Render(status))
	return nil
}
