// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"svgcore/allowed"
	"svgcore/config"
	"svgcore/document"
	"svgcore/resource"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// Bundle serves bundle: URLs when zip archive was given on command line.
	Bundle *resource.ArchiveFetcher

	// used by render subcommand
	NoDirs    bool
	Overwrite bool

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// OpenBundle opens zip archive which will serve bundle: URLs.
func (e *LocalEnv) OpenBundle(name string) error {
	a, err := resource.OpenArchive(name)
	if err != nil {
		return fmt.Errorf("unable to open bundle '%s': %w", name, err)
	}
	if e.Cfg != nil {
		a.MaxSize = e.Cfg.Security.MaxResourceSize
	}
	e.Bundle = a
	return nil
}

// CloseBundle releases bundle archive if any.
func (e *LocalEnv) CloseBundle() error {
	if e.Bundle == nil {
		return nil
	}
	err := e.Bundle.Close()
	e.Bundle = nil
	return err
}

// DocumentOptions builds document loading options according to configuration.
func (e *LocalEnv) DocumentOptions() (document.Options, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	opts := document.Options{Log: log}
	if e.Cfg == nil {
		return opts, nil
	}

	sec := e.Cfg.Security
	mux := resource.NewDefaultMux(sec.MaxResourceSize, log)
	if e.Bundle != nil {
		mux.Handle(resource.BundleScheme, e.Bundle)
	}
	opts.Resolver = &allowed.Policy{AllowDataURLs: sec.AllowDataURLs, Schemes: slices.Clone(sec.Schemes)}
	opts.Fetcher = mux
	opts.StrictXML = e.Cfg.Document.StrictXML

	var sheets []string
	if name := e.Cfg.Document.StylesheetPath; name != "" {
		data, err := os.ReadFile(name)
		if err != nil {
			return opts, fmt.Errorf("unable to read stylesheet '%s': %w", name, err)
		}
		e.Rpt.Store("stylesheet/"+filepath.Base(name), name)
		sheets = append(sheets, string(data))
	}
	if text := e.Cfg.Document.DefaultStylesheet; text != "" {
		sheets = append(sheets, text)
	}
	opts.DefaultStylesheet = strings.Join(sheets, "\n")
	return opts, nil
}

// LoadDocument loads document named on command line. Names with bundle:
// scheme address entries of the opened bundle, everything else is local
// file name.
func (e *LocalEnv) LoadDocument(name string) (*document.Document, error) {
	opts, err := e.DocumentOptions()
	if err != nil {
		return nil, err
	}
	u, err := documentURL(name)
	if err != nil {
		return nil, err
	}
	doc, err := document.LoadURL(u, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to load '%s': %w", name, err)
	}
	if u.Scheme() == "file" {
		e.Rpt.Store(fmt.Sprintf("source/%s%s", doc.ID, filepath.Ext(name)), name)
	}
	return doc, nil
}

// documentURL turns document name into canonical URL. Document itself is
// always allowed, policy applies to what it references.
func documentURL(name string) (*allowed.URL, error) {
	var (
		u   *url.URL
		err error
	)
	if rest, ok := strings.CutPrefix(name, resource.BundleScheme+":"); ok {
		u, err = url.Parse(resource.BundleURL(rest))
	} else {
		u, err = allowed.FileURL(name)
	}
	if err != nil {
		return nil, fmt.Errorf("bad document name '%s': %w", name, err)
	}
	au, err := (&allowed.Policy{Schemes: []string{u.Scheme}}).Resolve(u.String(), u)
	if err != nil {
		return nil, fmt.Errorf("bad document name '%s': %w", name, err)
	}
	return au, nil
}
