package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mixdown/internal/jobs"
	"mixdown/internal/logging"
	"mixdown/internal/pipeline"
	"mixdown/internal/transcache"
	"mixdown/internal/workspace"
)

// newAlignCommand aligns a lyric sheet against an audio file locally, without
// a running daemon. Useful for batch work and scripting.
func newAlignCommand(cmdCtx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "align <audio-file> <lyrics-file>",
		Short: "Align a lyrics file against an audio track and write an LRC file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			audioPath, lyricsPath := args[0], args[1]
			lyricsData, err := os.ReadFile(lyricsPath)
			if err != nil {
				return fmt.Errorf("read lyrics: %w", err)
			}

			output := strings.TrimSpace(outputFlag)
			if output == "" {
				base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
				output = base + ".lrc"
			}

			var cache *transcache.Store
			if cfg.TranscriptCache.Enabled {
				if opened, err := transcache.Open(cfg.TranscriptCache.Path); err == nil {
					cache = opened
					defer cache.Close()
				}
			}

			janitor, err := workspace.NewJanitor(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}
			ws, err := janitor.Acquire("align")
			if err != nil {
				return err
			}
			defer func() { _ = ws.Release() }()

			deps := pipeline.NewDeps(cfg, cache, logging.NewNop())
			store := jobs.NewStore(cfg.Limits.LogTail)
			runner := jobs.NewRunner(store, nil, 0)

			fmt.Fprintln(cmd.OutOrStdout(), "aligning", filepath.Base(audioPath), "...")
			id := runner.Submit("lyrics-align", ws, deps.AlignLyrics(audioPath, string(lyricsData)))
			runner.Wait()

			record, ok := store.Get(id)
			if !ok || record.Status != jobs.StatusCompleted {
				return fmt.Errorf("alignment failed: %s", record.Error)
			}

			if err := extractArchiveEntry(record.ResultRef, "aligned_lyrics.lrc", output); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output LRC path (defaults to <audio>.lrc)")
	return cmd
}

// extractArchiveEntry copies one named entry out of a result archive.
func extractArchiveEntry(archivePath, entryName, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open result archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != entryName {
			continue
		}
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("open archive entry: %w", err)
		}
		defer src.Close()
		out, err := os.Create(dest) //nolint:gosec
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, src); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}
	return fmt.Errorf("entry %q not found in %s", entryName, archivePath)
}
