package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/tunegrab-go/internal/app"
	"github.com/yourusername/tunegrab-go/internal/domain"
	"github.com/yourusername/tunegrab-go/internal/infrastructure"
	"github.com/yourusername/tunegrab-go/pkg/logger"
)

var (
	serverURL   string
	configFile  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "tunegrab",
		Short: "Tunegrab CLI - playlist acquisition and mp3 conversion",
		Long:  `A command-line tool that resolves playlists, fetches every track, and converts them to mp3.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(logsCmd)
}

// loadCLIConfig loads configuration and applies command-line overrides
func loadCLIConfig(cmd *cobra.Command) *domain.Config {
	cfg, err := app.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Output.Directory = output
	}
	if quality, _ := cmd.Flags().GetString("quality"); quality != "" {
		cfg.Audio.Bitrate = quality
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.Runner.Concurrency = concurrency
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Source.Backend = backend
	}

	return cfg
}

// buildCoordinator wires the in-process pipeline: transcoder, source backend,
// processor, coordinator. Pipeline logs go to stderr at warn level so the
// progress output stays readable.
func buildCoordinator(cfg *domain.Config) *app.Coordinator {
	log, err := logger.New(logger.Config{
		Level:      "warn",
		Format:     "console",
		OutputPath: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	transcoder := infrastructure.NewFFmpegTranscoder(cfg.Source.FFmpegBinary, cfg.Output.LogsDir)
	source, err := infrastructure.NewSource(cfg, transcoder, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	processor := app.NewTrackProcessor(source, log)
	return app.NewCoordinator(source, processor, log)
}

// printProgress renders per-track lifecycle events. Fetch and transcode
// percent ticks are deliberately not printed.
func printProgress(ev domain.ProgressEvent) {
	switch ev.Stage {
	case domain.StageStart:
		fmt.Printf("[%d/%d] %s\n", ev.Track.Index, ev.Total, ev.Track.Title)
	case domain.StageComplete:
		fmt.Printf("[%d/%d] done\n", ev.Track.Index, ev.Total)
	case domain.StageSkipped:
		fmt.Printf("[%d/%d] skipped, already present\n", ev.Track.Index, ev.Total)
	case domain.StageFailed:
		fmt.Printf("[%d/%d] FAILED: %s\n", ev.Track.Index, ev.Total, ev.Err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Fetch a playlist or single track and convert it to mp3",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCLIConfig(cmd)
		ref := domain.NewPlaylistRef(args[0], "")

		if err := os.MkdirAll(cfg.Output.LogsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		coordinator := buildCoordinator(cfg)
		coordinator.SetProgressSink(printProgress)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		stats, err := coordinator.Run(ctx, ref, domain.RunOptionsFromConfig(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		elapsed := time.Since(start).Round(time.Second)
		fmt.Printf("\nDone in %s: %d tracks, %d fetched, %d skipped, %d failed\n",
			elapsed, stats.Total, stats.Successful, stats.Skipped, stats.Failed)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "Resolve a playlist or track URL without fetching anything",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCLIConfig(cmd)
		ref := domain.NewPlaylistRef(args[0], "")

		transcoder := infrastructure.NewFFmpegTranscoder(cfg.Source.FFmpegBinary, cfg.Output.LogsDir)
		source, err := infrastructure.NewSource(cfg, transcoder, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tracks, err := source.Resolve(ctx, ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Resolved %d tracks (%s)\n", len(tracks), ref.Kind)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tID\tTITLE")
		for _, t := range tracks {
			fmt.Fprintf(w, "%d\t%s\t%s\n", t.Index, t.ID, truncate(t.Title, 60))
		}
		w.Flush()
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the environment can run the pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadCLIConfig(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results := infrastructure.NewDoctor(cfg).Run(ctx)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, r := range results {
			status := "ok"
			if !r.OK {
				status = "MISSING"
				if !r.Required {
					status = "missing (optional)"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, r.Detail)
		}
		w.Flush()

		if !infrastructure.AllRequiredOK(results) {
			os.Exit(1)
		}
	},
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var queueCmd = &cobra.Command{
	Use:   "queue [url]",
	Short: "Queue a run on the server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		url := args[0]
		kind, _ := cmd.Flags().GetString("kind")
		output, _ := cmd.Flags().GetString("output")
		quality, _ := cmd.Flags().GetString("quality")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		payload := map[string]interface{}{
			"url": url,
		}
		if kind != "" {
			payload["kind"] = kind
		}
		if output != "" {
			payload["output_dir"] = output
		}
		if quality != "" {
			payload["quality"] = quality
		}
		if concurrency > 0 {
			payload["concurrency"] = concurrency
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/runs", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Run queued successfully!\n")
		fmt.Printf("ID: %s\n", result["id"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all runs",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/runs"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var runs []map[string]interface{}
		json.Unmarshal(body, &runs)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tKIND\tSTATUS\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(r["id"].(string), 8),
				truncate(r["url"].(string), 40),
				r["kind"],
				r["status"],
				r["created_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Get(serverURL + "/api/v1/runs/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Run Statistics:")
		fmt.Printf("  Total:      %v\n", stats["total"])
		fmt.Printf("  Queued:     %v\n", stats["queued"])
		fmt.Printf("  Processing: %v\n", stats["processing"])
		fmt.Printf("  Completed:  %v\n", stats["completed"])
		fmt.Printf("  Failed:     %v\n", stats["failed"])
		fmt.Printf("  Cancelled:  %v\n", stats["cancelled"])
		fmt.Println("Track Totals:")
		fmt.Printf("  Fetched:    %v\n", stats["tracks_fetched"])
		fmt.Printf("  Failed:     %v\n", stats["tracks_failed"])
		fmt.Printf("  Skipped:    %v\n", stats["tracks_skipped"])
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get run details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		id := args[0]
		resp, err := http.Get(serverURL + "/api/v1/runs/" + id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var run map[string]interface{}
		json.Unmarshal(body, &run)

		fmt.Printf("Run Details:\n")
		fmt.Printf("  ID:      %s\n", run["id"])
		fmt.Printf("  URL:     %s\n", run["url"])
		fmt.Printf("  Kind:    %s\n", run["kind"])
		fmt.Printf("  Status:  %s\n", run["status"])
		fmt.Printf("  Created: %s\n", run["created_at"])
		fmt.Printf("  Tracks:  %v total, %v fetched, %v skipped, %v failed\n",
			run["total"], run["successful"], run["skipped"], run["failed"])
		if run["error_message"] != nil && run["error_message"] != "" {
			fmt.Printf("  Error:   %s\n", run["error_message"])
		}
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		id := args[0]
		resp, err := http.Post(serverURL+"/api/v1/runs/"+id+"/cancel", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Println("Run cancelled successfully")
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [id]",
	Short: "Retry a failed run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		id := args[0]
		resp, err := http.Post(serverURL+"/api/v1/runs/"+id+"/retry", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Println("Run queued for retry")
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View server logs (run, fetch, error)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		category := args[0]
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		url := fmt.Sprintf("%s/api/v1/logs/%s?limit=%d", serverURL, category, limit)
		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		if jsonOutput {
			var result map[string]interface{}
			json.Unmarshal(body, &result)
			prettyJSON, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(prettyJSON))
			return
		}

		var result struct {
			Entries []struct {
				Timestamp string `json:"timestamp"`
				Level     string `json:"level"`
				Message   string `json:"message"`
			} `json:"entries"`
		}
		json.Unmarshal(body, &result)
		for _, e := range result.Entries {
			fmt.Printf("%s [%s] %s\n", e.Timestamp, e.Level, e.Message)
		}
	},
}

func init() {
	runCmd.Flags().StringP("output", "o", "", "Output directory")
	runCmd.Flags().StringP("quality", "q", "", "Target bitrate in kbps (e.g. 320)")
	runCmd.Flags().IntP("concurrency", "c", 0, "Tracks to fetch in parallel (1 = sequential)")
	runCmd.Flags().StringP("backend", "b", "", "Source backend (native, ytdlp)")
	resolveCmd.Flags().StringP("backend", "b", "", "Source backend (native, ytdlp)")
	queueCmd.Flags().StringP("kind", "k", "", "Reference kind (single, playlist)")
	queueCmd.Flags().StringP("output", "o", "", "Output directory")
	queueCmd.Flags().StringP("quality", "q", "", "Target bitrate in kbps")
	queueCmd.Flags().IntP("concurrency", "c", 0, "Tracks to fetch in parallel")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	logsCmd.Flags().IntP("limit", "n", 100, "Number of entries to show")
	logsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
