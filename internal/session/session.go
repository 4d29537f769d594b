// Package session holds the canonical dataset of one analysis session as a
// sequence of immutable, versioned snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/classreport-cli/internal/extract"
	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/source"
)

// MaxHistory bounds the number of snapshots kept for undo.
const MaxHistory = 20

var (
	// ErrNoSnapshot means nothing has been ingested yet.
	ErrNoSnapshot = errors.New("no data loaded in this session")
	// ErrNothingToUndo means the current snapshot is the oldest one.
	ErrNothingToUndo = errors.New("nothing to undo")
)

// Origin records what produced a snapshot.
type Origin string

const (
	OriginIngest     Origin = "ingest"
	OriginAppend     Origin = "append"
	OriginCorrection Origin = "correction"
	OriginUndo       Origin = "undo"
)

// Snapshot is one immutable version of the dataset.
type Snapshot struct {
	Version   int            `json:"version"`
	Origin    Origin         `json:"origin"`
	Dataset   grades.Dataset `json:"-"`
	Sources   []string       `json:"sources"`
	Warnings  []Warning      `json:"warnings"`
	CreatedAt time.Time      `json:"created_at"`
}

// Input is one uploaded file.
type Input struct {
	Name string
	Data []byte
}

// Options configure a session.
type Options struct {
	Threshold float64
	Policy    grades.TierPolicy
	// Workers bounds parallel reading and extraction; <= 1 is sequential.
	Workers int
	Source  source.Options
	Logger  *slog.Logger
	// Progress, when set, is called from the calling goroutine as each file
	// is scheduled.
	Progress func(i, n int, name string)
}

// Session is a caller-owned value and is not safe for concurrent use.
type Session struct {
	ID        string
	opts      Options
	extractor extract.Extractor
	history   []*Snapshot
	version   int
	now       func() time.Time
}

// New creates an empty session. x may be nil when only spreadsheet sources
// are expected; text sources then produce credentials warnings.
func New(x extract.Extractor, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{ID: uuid.NewString(), opts: opts, extractor: x, now: time.Now}
}

// Options returns the session options.
func (s *Session) Options() Options { return s.opts }

// SetPolicy changes the tier policy for later analyses.
func (s *Session) SetPolicy(p grades.TierPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.opts.Policy = p
	return nil
}

// SetThreshold changes the pass mark for later analyses.
func (s *Session) SetThreshold(th float64) { s.opts.Threshold = th }

// Current returns the active snapshot.
func (s *Session) Current() (*Snapshot, error) {
	if len(s.history) == 0 {
		return nil, ErrNoSnapshot
	}
	return s.history[len(s.history)-1], nil
}

// Version is the version of the active snapshot, 0 when empty.
func (s *Session) Version() int {
	if cur, err := s.Current(); err == nil {
		return cur.Version
	}
	return 0
}

// History returns the snapshots kept for undo, oldest first.
func (s *Session) History() []*Snapshot {
	return append([]*Snapshot(nil), s.history...)
}

// IngestFiles reads paths from disk and ingests them as a new batch.
func (s *Session) IngestFiles(ctx context.Context, paths []string) (*Snapshot, error) {
	inputs := make([]Input, 0, len(paths))
	var warns []Warning
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			warns = append(warns, warningFor(filepath.Base(p), &source.UnreadableError{Source: filepath.Base(p), Err: err}))
			continue
		}
		inputs = append(inputs, Input{Name: filepath.Base(p), Data: data})
	}
	return s.ingest(ctx, inputs, warns, nil, OriginIngest)
}

// Ingest replaces the dataset with the records of a new batch. Files that
// cannot be used become warnings; only a batch without any record fails,
// with a *BatchError.
func (s *Session) Ingest(ctx context.Context, inputs []Input) (*Snapshot, error) {
	return s.ingest(ctx, inputs, nil, nil, OriginIngest)
}

// Append merges a new batch after the current records, so re-uploaded
// grades win over the ones already loaded.
func (s *Session) Append(ctx context.Context, inputs []Input) (*Snapshot, error) {
	var base []grades.Record
	if cur, err := s.Current(); err == nil {
		base = inFirstSeenOrder(cur.Dataset)
	}
	return s.ingest(ctx, inputs, nil, base, OriginAppend)
}

func (s *Session) ingest(ctx context.Context, inputs []Input, warns []Warning, base []grades.Record, origin Origin) (*Snapshot, error) {
	log := s.opts.Logger
	results := make([][]grades.Record, len(inputs))
	fileWarns := make([]*Warning, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	workers := s.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, in := range inputs {
		if s.opts.Progress != nil {
			s.opts.Progress(i+1, len(inputs), in.Name)
		}
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := s.readOne(gctx, in)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				w := warningFor(in.Name, err)
				fileWarns[i] = &w
				log.Info("source skipped", "session", s.ID, "source", in.Name, "kind", w.Kind, "err", w.Message)
				return nil
			}
			results[i] = recs
			log.Info("source ingested", "session", s.ID, "source", in.Name, "records", len(recs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var names []string
	for i, w := range fileWarns {
		if w != nil {
			warns = append(warns, *w)
		} else {
			names = append(names, inputs[i].Name)
		}
	}
	ds, err := grades.Merge(append([][]grades.Record{base}, results...)...)
	if err != nil || len(names) == 0 {
		log.Info("empty batch", "session", s.ID, "files", len(inputs), "warnings", len(warns))
		return nil, &BatchError{Warnings: warns}
	}
	return s.push(grades.Coerce(ds), origin, names, warns), nil
}

// readOne turns one file into records. Text sources go through the
// extractor.
func (s *Session) readOne(ctx context.Context, in Input) ([]grades.Record, error) {
	res, err := source.Read(in.Name, in.Data, s.opts.Source)
	if err != nil {
		return nil, err
	}
	table := res.Table
	if table == nil {
		if s.extractor == nil {
			return nil, &extract.ExtractionError{Source: in.Name, Kind: extract.KindConfig, Err: errors.New("no model runtime configured for text sources")}
		}
		t, err := s.extractor.Extract(ctx, res.Text, in.Name)
		if err != nil {
			return nil, err
		}
		t.Source = in.Name
		table = &t
	}
	return grades.Ingest(*table)
}

// Correct replaces the dataset with an edited matrix.
func (s *Session) Correct(m grades.Matrix) (*Snapshot, error) {
	if _, err := s.Current(); err != nil {
		return nil, err
	}
	ds, err := grades.Reconcile(m)
	if err != nil {
		return nil, fmt.Errorf("reconcile matrix: %w", err)
	}
	snap := s.push(ds, OriginCorrection, []string{"matrix"}, nil)
	s.opts.Logger.Info("correction applied", "session", s.ID, "version", snap.Version, "records", ds.Len())
	return snap, nil
}

// Undo drops the active snapshot and reinstates the previous one under the
// next version number, so clients holding the dropped version see a change.
func (s *Session) Undo() (*Snapshot, error) {
	if len(s.history) < 2 {
		return nil, ErrNothingToUndo
	}
	s.history = s.history[:len(s.history)-1]
	prev := *s.history[len(s.history)-1]
	s.version++
	prev.Version = s.version
	prev.Origin = OriginUndo
	prev.CreatedAt = s.now()
	s.history[len(s.history)-1] = &prev
	s.opts.Logger.Info("undo", "session", s.ID, "version", prev.Version)
	return &prev, nil
}

// Analysis computes statistics for the active snapshot.
func (s *Session) Analysis() (grades.Analysis, error) {
	cur, err := s.Current()
	if err != nil {
		return grades.Analysis{}, err
	}
	return grades.Analyze(cur.Dataset, grades.Options{Threshold: s.opts.Threshold, Policy: s.opts.Policy})
}

func (s *Session) push(ds grades.Dataset, origin Origin, sources []string, warns []Warning) *Snapshot {
	s.version++
	snap := &Snapshot{
		Version:   s.version,
		Origin:    origin,
		Dataset:   ds,
		Sources:   sources,
		Warnings:  warns,
		CreatedAt: s.now(),
	}
	s.history = append(s.history, snap)
	if len(s.history) > MaxHistory {
		s.history = s.history[len(s.history)-MaxHistory:]
	}
	return snap
}

// inFirstSeenOrder lists records so that a re-merge reproduces the
// dataset's student order.
func inFirstSeenOrder(d grades.Dataset) []grades.Record {
	out := append([]grades.Record(nil), d.Records...)
	sort.SliceStable(out, func(i, j int) bool {
		return d.FirstSeen[out[i].Student] < d.FirstSeen[out[j].Student]
	})
	return out
}
