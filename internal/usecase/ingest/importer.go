package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const defaultSource = "manual"

// Stats counts what an import did with each document.
type Stats struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// Importer writes raw records into the document store. A document is either an
// envelope {id, source, fetched_at, raw_hash, payload} or a bare payload.
type Importer struct {
	store ports.RawRecordStore
	now   func() time.Time
	newID func() string
}

func NewImporter(store ports.RawRecordStore) *Importer {
	return &Importer{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (i *Importer) ImportFile(ctx context.Context, path string, source string) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Stats{}, errors.New("import path is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return Stats{}, errs.Wrapf(err, "open import file %s", path)
	}
	defer f.Close()

	return i.Import(logging.WithAttrs(ctx, slog.String("file", path)), f, source)
}

// Import decodes a YAML or JSON stream. Each stream document may be a single
// record, a list of records, or a mapping with a "records" list.
func (i *Importer) Import(ctx context.Context, r io.Reader, source string) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	if i.store == nil {
		return Stats{}, errors.New("raw record store is required")
	}
	ctx = logging.WithComponent(ctx, "ingest")

	docs, err := decodeDocuments(r)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for n, doc := range docs {
		if err := ctx.Err(); err != nil {
			return stats, errs.Wrap(err, "check context")
		}

		rec, err := i.record(doc, source)
		if err == nil {
			err = i.store.InsertRaw(ctx, rec)
		}
		switch {
		case err == nil:
			stats.Inserted++
		case errors.Is(err, ports.ErrRawDuplicate):
			stats.Duplicates++
		case errors.Is(err, event.ErrInvalidRecord):
			stats.Errors++
			logging.Warn(ctx, "raw record rejected", slog.Int("index", n), slog.Any("err", errs.Loggable(err)))
		default:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			stats.Errors++
			logging.Error(ctx, "raw record insert failed", slog.Int("index", n), slog.Any("err", errs.Loggable(err)))
		}
	}

	logging.Info(ctx, "import finished",
		slog.Int("inserted", stats.Inserted),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("errors", stats.Errors),
	)
	return stats, nil
}

func (i *Importer) record(doc any, source string) (event.RawRecord, error) {
	fields, ok := doc.(map[string]any)
	if !ok {
		return event.RawRecord{}, fmt.Errorf("%w: document must be an object, got %T", event.ErrInvalidRecord, doc)
	}

	rec := event.RawRecord{
		Source: firstNonEmpty(strings.TrimSpace(source), defaultSource),
	}

	payloadValue, isEnvelope := fields["payload"]
	if !isEnvelope {
		rec.Payload = event.Payload(fields)
	} else {
		envelope := event.Payload(fields)
		if payload, ok := payloadValue.(map[string]any); ok {
			rec.Payload = event.Payload(payload)
		}
		rec.ID = strings.TrimSpace(envelope.TextOr("id"))
		rec.Hash = strings.TrimSpace(envelope.TextOr("raw_hash"))
		if s := strings.TrimSpace(envelope.TextOr("source")); s != "" {
			rec.Source = s
		}
		if v, ok := envelope.Value("fetched_at"); ok {
			fetchedAt, err := event.ParseFlexible(v)
			if err != nil {
				return event.RawRecord{}, fmt.Errorf("%w: fetched_at: %v", event.ErrInvalidRecord, err)
			}
			rec.FetchedAt = fetchedAt
		}
	}

	if rec.ID == "" {
		rec.ID = i.newID()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = i.now().UTC()
	}
	if rec.Hash == "" && rec.Payload != nil {
		hash, err := event.ContentHash(rec.Payload)
		if err != nil {
			return event.RawRecord{}, fmt.Errorf("%w: %v", event.ErrInvalidRecord, err)
		}
		rec.Hash = hash
	}
	return rec, nil
}

func decodeDocuments(r io.Reader) ([]any, error) {
	dec := yaml.NewDecoder(r)
	var out []any
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(err, "decode import stream")
		}

		switch value := doc.(type) {
		case nil:
		case []any:
			out = append(out, value...)
		case map[string]any:
			if records, ok := value["records"].([]any); ok {
				out = append(out, records...)
				continue
			}
			out = append(out, value)
		default:
			out = append(out, value)
		}
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
