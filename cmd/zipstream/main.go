// Package main implements the zipstream command, which builds a ZIP archive
// in a single streaming pass from local files or from a TOML manifest that
// can mix local files and remote URLs. The archive size is printed before
// any content is read.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/zipstream"
	"github.com/meigma/zipstream/internal/manifest"
	filesource "github.com/meigma/zipstream/source/file"
	httpsource "github.com/meigma/zipstream/source/http"
)

var (
	force        = flag.Bool("force", false, "overwrite the archive file if it already exists")
	comment      = flag.String("comment", "", "archive-level comment")
	storeMethod  = flag.String("store", "deflate", `storage method: "store" or "deflate"`)
	manifestPath = flag.String("manifest", "", "TOML manifest describing the archive entries")
	logLevel     = flag.String("log-level", "info", "log level (debug, info, warn, error)")
)

// probeConcurrency bounds the parallel stat/HEAD probes used to discover
// entry sizes before the archive is laid out.
const probeConcurrency = 8

func main() {
	flag.Usage = usage
	flag.Parse()
	setupLogger(*logLevel)

	if err := run(flag.Args()); err != nil {
		slog.Error("archive build failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] archive [file ...]\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func setupLogger(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New("archive path is required")
	}
	archivePath := args[0]
	files := args[1:]

	if !*force {
		if _, err := os.Stat(archivePath); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", archivePath)
		}
	}

	var (
		entries        []zipstream.Entry
		archiveComment = *comment
		err            error
	)
	if *manifestPath != "" {
		if len(files) > 0 {
			return errors.New("cannot combine -manifest with file arguments")
		}
		entries, archiveComment, err = manifestEntries(*manifestPath, *comment)
	} else {
		entries, err = fileEntries(files)
	}
	if err != nil {
		return err
	}

	enc, err := zipstream.NewEncoder(entries, zipstream.WithComment(archiveComment))
	if err != nil {
		return err
	}
	slog.Info("archive prepared", "entries", len(entries), "size", enc.Size())

	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	written, err := enc.WriteTo(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	slog.Info("archive written", "path", archivePath, "bytes", written)
	return nil
}

// newStorage wraps src according to the -store flag.
func newStorage(src zipstream.ByteSource, size uint64) (zipstream.Storage, error) {
	switch *storeMethod {
	case "store":
		return zipstream.NewStore(src, size), nil
	case "deflate":
		return zipstream.NewDeflateStore(src, size), nil
	default:
		return nil, fmt.Errorf("unknown storage method %q", *storeMethod)
	}
}

// fileEntries builds archive entries for local files given on the command
// line, probing their sizes concurrently.
func fileEntries(paths []string) ([]zipstream.Entry, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input files")
	}

	entries := make([]zipstream.Entry, len(paths))
	var g errgroup.Group
	g.SetLimit(probeConcurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			storage, err := newStorage(filesource.NewSource(path), uint64(info.Size()))
			if err != nil {
				return err
			}
			entries[i] = zipstream.Entry{
				Path:     entryPath(path),
				Data:     storage,
				Modified: info.ModTime(),
				Binary:   true,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// manifestEntries builds archive entries from a TOML manifest, probing
// sizes (local stat, remote HEAD) concurrently. The -comment flag, when
// set, overrides the manifest's comment.
func manifestEntries(path, commentFlag string) ([]zipstream.Entry, string, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, "", err
	}

	archiveComment := m.Comment
	if commentFlag != "" {
		archiveComment = commentFlag
	}

	entries := make([]zipstream.Entry, len(m.Entries))
	var g errgroup.Group
	g.SetLimit(probeConcurrency)
	for i, me := range m.Entries {
		i, me := i, me
		g.Go(func() error {
			entry, err := buildEntry(me)
			if err != nil {
				return fmt.Errorf("entry %q: %w", me.Path, err)
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}
	return entries, archiveComment, nil
}

// buildEntry resolves one manifest entry into an encoder entry.
func buildEntry(me manifest.Entry) (zipstream.Entry, error) {
	var (
		src      zipstream.ByteSource
		size     uint64
		modified = me.Modified
	)
	if me.File != "" {
		fs := filesource.NewSource(me.File)
		src = fs
		if me.Size != nil {
			size = *me.Size
		} else {
			s, err := fs.Size()
			if err != nil {
				return zipstream.Entry{}, err
			}
			size = s
		}
		if modified.IsZero() {
			if info, err := os.Stat(me.File); err == nil {
				modified = info.ModTime()
			}
		}
	} else {
		var opts []httpsource.Option
		if me.Size != nil {
			opts = append(opts, httpsource.WithDeclaredSize(*me.Size))
		}
		hs, err := httpsource.NewSource(me.URL, opts...)
		if err != nil {
			return zipstream.Entry{}, err
		}
		src = hs
		size = hs.Size()
	}
	if modified.IsZero() {
		modified = time.Now()
	}

	storage, err := newStorage(src, size)
	if err != nil {
		return zipstream.Entry{}, err
	}
	return zipstream.Entry{
		Path:     me.Path,
		Data:     storage,
		Modified: modified,
		Binary:   me.Binary,
		Comment:  me.Comment,
	}, nil
}

// entryPath normalizes a command-line file path into an archive-relative
// path: volume and leading separators are stripped, separators become
// forward slashes.
func entryPath(p string) string {
	p = strings.TrimPrefix(p, filepath.VolumeName(p))
	p = filepath.ToSlash(filepath.Clean(p))
	p = strings.TrimPrefix(p, "/")
	return p
}
