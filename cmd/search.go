package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/fotobox/facesearch/internal/config"
	"github.com/fotobox/facesearch/internal/logger"
	"github.com/fotobox/facesearch/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <selfie> <folder>",
	Short: "Find photos of a face in a Drive folder",
	Long: `Search a Google Drive folder for photos containing the face from a selfie.

The folder argument accepts a bare Drive folder ID, a Drive folder URL, or
the ID of a single image file. Matches are printed most similar first.

Use --save to download the matched photos into a local directory.`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Float64("threshold", 0, "Maximum face distance for a match (defaults to FACE_MATCH_THRESHOLD)")
	searchCmd.Flags().String("save", "", "Directory to download matched photos into")
}

func runSearch(cmd *cobra.Command, args []string) error {
	selfiePath, folder := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Keep CLI output readable: only warnings and errors from the pipeline.
	log, err := logger.New(cfg.Logging.Env, "warn")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold <= 0 {
		threshold = cfg.Match.Threshold
	}

	selfie, err := os.ReadFile(selfiePath) //nolint:gosec // user-supplied CLI argument
	if err != nil {
		return fmt.Errorf("could not read selfie: %w", err)
	}

	var bar *progressbar.ProgressBar
	service, err := buildService(cfg, log, search.Options{
		Threshold:   threshold,
		Concurrency: cfg.Match.Concurrency,
		OnCandidate: func(search.Result) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Match.TimeoutSeconds)*time.Second)
	defer cancel()

	queryEmbedding, err := service.QueryEmbedding(ctx, selfie)
	if err != nil {
		return fmt.Errorf("could not embed selfie: %w", err)
	}
	if queryEmbedding == nil {
		fmt.Println("No face detected in the selfie.")
		return nil
	}

	candidates, err := service.Resolve(ctx, folder)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("The folder contains no images.")
		return nil
	}

	bar = progressbar.NewOptions(len(candidates),
		progressbar.OptionSetDescription("Scoring photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	matches, stats := service.Search(ctx, queryEmbedding, candidates, threshold)
	_ = bar.Finish()
	fmt.Println()

	if len(matches) == 0 {
		fmt.Printf("No matches (scored %d of %d photos).\n", stats.Scored, stats.Candidates)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DISTANCE\tID\tNAME")
	for _, m := range matches {
		fmt.Fprintf(w, "%.3f\t%s\t%s\n", m.Distance, m.File.ID, m.File.Name)
	}
	w.Flush()
	fmt.Printf("\n%d matches, scored %d of %d photos (threshold %.2f)\n",
		len(matches), stats.Scored, stats.Candidates, threshold)

	if saveDir := mustGetString(cmd, "save"); saveDir != "" {
		if err := saveMatches(ctx, service, matches, saveDir); err != nil {
			return err
		}
	}
	return nil
}

// saveMatches downloads matched photos into dir, named from their sanitized
// display names.
func saveMatches(ctx context.Context, service *search.Service, matches []search.Match, dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}

	for _, m := range matches {
		data, _, err := service.Download(ctx, m.File.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not download %s: %v\n", m.File.ID, err)
			continue
		}

		name := search.SafeFileName(m.File.Name)
		if name == "photo" {
			name = m.File.ID + ".jpg"
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("could not write %s: %w", path, err)
		}
		fmt.Printf("saved %s\n", path)
	}
	return nil
}
