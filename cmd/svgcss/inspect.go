package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"svgcore/document"
	"svgcore/dom"
	"svgcore/href"
	"svgcore/state"
)

func outputStyles(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if cmd.Args().Len() > 2 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	d, err := env.LoadDocument(src)
	if err != nil {
		return err
	}

	fname := cmd.Args().Get(1)
	out := io.Writer(os.Stdout)
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer func() {
			if er := f.Close(); er != nil && err == nil {
				err = er
			}
		}()
		out = f
	} else {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing styles", zap.String("source", src), zap.String("file", fname), zap.Int("rules", d.Stylesheet().Len()))

	if cmd.Bool("styled") {
		data, err := d.StyledXML()
		if err != nil {
			return fmt.Errorf("unable to serialize document: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	w := bufio.NewWriter(out)
	if _, err := d.Stylesheet().WriteTo(w); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	fmt.Fprintf(w, "\n/*\n%s*/\n", dom.Tree(d.Root()))
	return w.Flush()
}

func lookupReferences(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	refs := cmd.Args().Tail()
	if len(refs) == 0 {
		return errors.New("no references to look up")
	}

	d, err := env.LoadDocument(src)
	if err != nil {
		return err
	}

	missing := 0
	for _, ref := range refs {
		if n := lookup(d, ref, env.Log); n != nil {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", ref, n)
			continue
		}
		missing++
		fmt.Fprintf(os.Stdout, "%s\t-\n", ref)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d references not resolved", missing, len(refs))
	}
	return nil
}

func lookup(d *document.Document, ref string, log *zap.Logger) *dom.Node {
	h, err := href.WithFragment(ref)
	if err != nil {
		log.Warn("Malformed reference", zap.String("ref", ref), zap.Error(err))
		return nil
	}
	n := d.Lookup(ref)
	log.Debug("Reference looked up", zap.Stringer("kind", h.Kind), zap.String("uri", h.URI), zap.String("fragment", h.Fragment), zap.Bool("found", n != nil))
	return n
}
