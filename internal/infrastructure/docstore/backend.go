package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
)

// Backend wraps the badger instance holding raw records and enrichment outcomes.
type Backend struct {
	db *badger.DB
}

// badgerLogger routes badger's printf-style logging into the context logger.
// Badger is chatty at info level, so info lines are demoted to debug.
type badgerLogger struct {
	ctx context.Context
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	logging.Error(l.ctx, fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	logging.Warn(l.ctx, fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	logging.Debug(l.ctx, fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	logging.Debug(l.ctx, fmt.Sprintf(msg, items...))
}

// OpenBackend opens the store at path, creating the directory when needed.
// inMemory ignores path and keeps everything in RAM.
func OpenBackend(ctx context.Context, path string, inMemory bool) (*Backend, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "infrastructure.docstore")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, errs.Wrapf(err, "create docstore directory %q", path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, errs.Wrapf(err, "stat docstore directory %q", path)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("docstore path %q is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerLogger{ctx: logCtx}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(err, "open badger")
	}

	logging.Info(logCtx, "document store opened", slog.String("path", path), slog.Bool("in_memory", inMemory))
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// view runs fn in a read-only transaction.
func (b *Backend) view(fn func(txn *badger.Txn) error) error {
	return b.db.View(fn)
}

// update runs fn in a read-write transaction committed when fn returns nil.
func (b *Backend) update(fn func(txn *badger.Txn) error) error {
	return b.db.Update(fn)
}
