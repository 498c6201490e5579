package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mixdown/internal/api"
)

func newJobsCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect jobs on the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(cmdCtx, cmd)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all tracked jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(cmdCtx, cmd)
		},
	})
	cmd.AddCommand(newJobsShowCommand(cmdCtx))
	return cmd
}

func runJobsList(cmdCtx *commandContext, cmd *cobra.Command) error {
	base, err := cmdCtx.apiBaseURL()
	if err != nil {
		return err
	}
	var listing api.JobListResponse
	if err := getJSON(base+"/api/jobs", &listing); err != nil {
		return err
	}
	if len(listing.Jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
		return nil
	}

	rows := make([][]string, 0, len(listing.Jobs))
	for _, job := range listing.Jobs {
		rows = append(rows, []string{
			shortID(job.JobID),
			job.Kind,
			job.Status,
			fmt.Sprintf("%3.0f%%", job.Progress*100),
			job.CreatedAt,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"ID", "KIND", "STATUS", "PROGRESS", "CREATED"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func newJobsShowCommand(cmdCtx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show progress and logs for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cmdCtx.apiBaseURL()
			if err != nil {
				return err
			}
			var progress api.ProgressResponse
			url := fmt.Sprintf("%s/api/%s/progress?job_id=%s", base, kindPath(kindFlag), args[0])
			if err := getJSON(url, &progress); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job:      %s\n", progress.JobID)
			fmt.Fprintf(out, "status:   %s\n", progress.Status)
			fmt.Fprintf(out, "progress: %.0f%%\n", progress.Progress*100)
			if progress.Error != "" {
				fmt.Fprintf(out, "error:    %s\n", progress.Error)
			}
			if len(progress.Logs) > 0 {
				fmt.Fprintln(out, "logs:")
				for _, line := range progress.Logs {
					fmt.Fprintf(out, "  %s\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "render", "Job kind (render, stems, normalize, lyrics-align, lyrics-extract)")
	return cmd
}

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := cmdCtx.apiBaseURL()
			if err != nil {
				return err
			}
			var status api.StatusResponse
			if err := getJSON(base+"/api/status", &status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daemon %s, %d tracked jobs\n", status.Status, status.Jobs)
			return nil
		},
	}
}

// kindPath maps a job kind to its API route segment.
func kindPath(kind string) string {
	switch kind {
	case "lyrics-align":
		return "lyrics/align"
	case "lyrics-extract":
		return "lyrics/extract"
	default:
		return kind
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func getJSON(url string, into any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && strings.TrimSpace(payload.Error) != "" {
			return fmt.Errorf("daemon: %s", payload.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}
