package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/pkg/cache"
	"github.com/elicitlabs/elicit/pkg/pathway"
	"github.com/elicitlabs/elicit/pkg/render"
)

// renderTTL bounds how long cached render artifacts stay valid.
const renderTTL = 24 * time.Hour

// renderCommand creates the render command for generating pathway diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formats  string
		out      string
		title    string
		detailed bool
		noCache  bool
		pngScale float64
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a pathway as a DOT, SVG, or PNG diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}

			artifacts, err := c.openCache(ctx, noCache)
			if err != nil {
				logger.Warn("cache unavailable, rendering fresh", "error", err)
				artifacts = cache.NewNullCache()
			}
			defer artifacts.Close()

			base := out
			if base == "" {
				base = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			}

			opts := render.Options{Detailed: detailed, Title: title}
			dot := render.ToDOT(p, opts)

			snapData, err := json.Marshal(p.Snapshot())
			if err != nil {
				return err
			}
			pathwayHash := cache.Hash(snapData)
			keyer := cache.NewDefaultKeyer()

			prog := newProgress(logger)
			for _, format := range strings.Split(formats, ",") {
				format = strings.TrimSpace(format)
				path := base + "." + format

				var data []byte
				var hit bool
				switch format {
				case "dot":
					data = []byte(dot)
				case "svg", "png":
					data, hit, err = c.renderArtifact(cmd, artifacts, keyer, pathwayHash, dot, format, detailed, pngScale)
					if err != nil {
						return err
					}
				default:
					return fmt.Errorf("unsupported format %q (want dot, svg, or png)", format)
				}

				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				printFile(path)
				printStats(p.NodeCount(), p.ConnectionCount(), hit)
			}
			prog.done(fmt.Sprintf("Rendered %d nodes", p.NodeCount()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&formats, "format", "f", "svg", "comma-separated formats: dot, svg, png")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output basename (default input name)")
	cmd.Flags().StringVar(&title, "title", "", "diagram title (default pathway name)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node metadata in labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the render artifact cache")
	cmd.Flags().Float64Var(&pngScale, "scale", 2.0, "PNG zoom factor")
	return cmd
}

// renderArtifact produces one SVG or PNG artifact, consulting the cache
// keyed by the pathway snapshot content.
func (c *CLI) renderArtifact(cmd *cobra.Command, artifacts cache.Cache, keyer cache.Keyer, pathwayHash, dot, format string, detailed bool, pngScale float64) (data []byte, hit bool, err error) {
	ctx := cmd.Context()

	keyFormat := format
	if detailed {
		keyFormat += "-detailed"
	}
	key := keyer.RenderKey(pathwayHash, cache.RenderKeyOpts{Format: keyFormat})

	if cached, ok, cacheErr := artifacts.Get(ctx, key); cacheErr == nil && ok {
		return cached, true, nil
	}

	sp := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", format))
	sp.Start()
	switch format {
	case "svg":
		data, err = render.SVG(dot)
	case "png":
		data, err = render.PNG(dot, pngScale)
	}
	sp.Stop()
	if err != nil {
		return nil, false, err
	}

	if cacheErr := artifacts.Set(ctx, key, data, renderTTL); cacheErr != nil {
		loggerFromContext(ctx).Warn("cache render artifact", "error", cacheErr)
	}
	return data, false, nil
}
