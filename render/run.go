// Package render implements render subcommand: loads SVG documents, applies
// their stylesheets and rasterizes the result.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"svgcore/config"
	"svgcore/raster"
	"svgcore/resource"
	"svgcore/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("render")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if cmd.IsSet("to") {
		format, err := config.ParseImageFormat(cmd.String("to"))
		if err != nil {
			log.Warn("Unknown output format requested, keeping configured one", zap.Stringer("format", env.Cfg.Render.Format), zap.Error(err))
		} else {
			env.Cfg.Render.Format = format
		}
	}
	if cmd.IsSet("width") {
		env.Cfg.Render.Width = int(cmd.Int("width"))
	}
	if cmd.IsSet("height") {
		env.Cfg.Render.Height = int(cmd.Int("height"))
	}
	if cmd.IsSet("current-color") {
		env.Cfg.Render.CurrentColor = cmd.String("current-color")
	}
	if cmd.Bool("grayscale") {
		env.Cfg.Render.Grayscale = true
	}
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("format", env.Cfg.Render.Format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process determines whether source is bundle path, directory or single file
// and renders accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	if prefix, ok := strings.CutPrefix(src, resource.BundleScheme+":"); ok {
		if env.Bundle == nil {
			return fmt.Errorf("bundle source requested (%s), but no bundle was opened", src)
		}
		return processBundle(ctx, prefix, dst, log)
	}

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	if fi.IsDir() {
		return processDir(ctx, src, dst, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	return processDocument(ctx, src, filepath.Base(src), dst, log)
}

// processDir walks directory tree finding svg files and renders them.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if resource.DetectContentType(path, nil) != "image/svg+xml" {
			log.Debug("Skipping file, not recognized as SVG", zap.String("file", path))
			return nil
		}

		count++

		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processDocument(ctx, path, rel, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	return err
}

// processBundle renders all svg entries of the opened bundle under prefix.
func processBundle(ctx context.Context, prefix, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)
	prefix = strings.TrimLeft(prefix, "/")

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("bundle", prefix))
		}
	}()

	return env.Bundle.Walk(prefix, ".svg", func(name string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		count++

		src := resource.BundleURL(name)
		if err := processDocument(ctx, src, name, dst, log); err != nil {
			log.Error("Unable to process file in bundle", zap.String("file", name), zap.Error(err))
		}
		return nil
	})
}

// processDocument renders single document. "name" is what LoadDocument
// accepts, "src" is source path relative to what was requested on the
// command line, "dst" is destination directory.
func processDocument(ctx context.Context, name, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Render

	log.Info("Rendering starting", zap.String("from", name))

	d, err := env.LoadDocument(name)
	if err != nil {
		return err
	}
	svg, err := d.StyledXML()
	if err != nil {
		return fmt.Errorf("unable to serialize styled document: %w", err)
	}
	env.Rpt.StoreData(fmt.Sprintf("styled/%s.svg", d.ID), svg)

	img, err := raster.Rasterize(svg, raster.Options{Width: cfg.Width, Height: cfg.Height, CurrentColor: cfg.CurrentColor})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := raster.Encode(&buf, img, cfg); err != nil {
		return fmt.Errorf("unable to encode image: %w", err)
	}

	out := buildOutputPath(d, src, dst, img.Bounds().Dx(), img.Bounds().Dy(), env)
	if _, err := os.Stat(out); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", out)
		}
		log.Warn("Overwriting existing file", zap.String("file", out))
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("unable to check output file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}

	log.Info("Rendering completed", zap.String("to", out), zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return nil
}
