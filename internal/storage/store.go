package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/logging"
	"github.com/san-kum/cloudmorph/internal/sim"
)

const (
	AnimationFile = "animation.gif"
	MetadataFile  = "metadata.json"
	TraceFile     = "trace.csv"
)

// Animation is anything that can write itself as a GIF stream.
type Animation interface {
	EncodeGIF(w io.Writer) error
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory of a stored run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// Run describes a finished animation. Particle positions and velocities are
// not part of it.
type Run struct {
	Name           string
	Skeleton       string
	Seed           int64
	Box            dynamo.Box
	GridX, GridY   int
	SkeletonPoints int
	FPS            int
	Result         *sim.Result
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Timestamp      time.Time          `json:"timestamp"`
	Skeleton       string             `json:"skeleton"`
	Seed           int64              `json:"seed"`
	Box            dynamo.Box         `json:"box"`
	GridX          int                `json:"grid_x"`
	GridY          int                `json:"grid_y"`
	Particles      int                `json:"particles"`
	SkeletonPoints int                `json:"skeleton_points"`
	Frames         int                `json:"frames"`
	FPS            int                `json:"fps"`
	Phases         []sim.PhaseResult  `json:"phases"`
	Metrics        map[string]float64 `json:"metrics"`
}

// Save writes the animation, metadata and trace of a completed run. The GIF
// is written to a temporary file and renamed into place; if any part fails
// the run directory is removed.
func (s *Store) Save(run Run, anim Animation) (string, error) {
	if run.Result == nil {
		return "", errors.New("storage: run has no result")
	}

	now := time.Now()
	runID, runDir, err := s.mkRunDir(run.Name, now)
	if err != nil {
		return "", err
	}

	if err := s.write(runID, runDir, now, run, anim); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}

	logging.Logger().Info("run saved", "id", runID, "frames", run.Result.Frames, "dir", runDir)
	return runID, nil
}

func (s *Store) mkRunDir(name string, now time.Time) (string, string, error) {
	if name == "" {
		name = "run"
	}
	base := fmt.Sprintf("%s_%d", name, now.Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s-%d", base, i)
		}
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

func (s *Store) write(runID, runDir string, now time.Time, run Run, anim Animation) error {
	if err := writeAtomic(filepath.Join(runDir, AnimationFile), anim.EncodeGIF); err != nil {
		return fmt.Errorf("write animation: %w", err)
	}

	meta := RunMetadata{
		ID:             runID,
		Name:           run.Name,
		Timestamp:      now,
		Skeleton:       run.Skeleton,
		Seed:           run.Seed,
		Box:            run.Box,
		GridX:          run.GridX,
		GridY:          run.GridY,
		Particles:      run.GridX * run.GridY,
		SkeletonPoints: run.SkeletonPoints,
		Frames:         run.Result.Frames,
		FPS:            run.FPS,
		Phases:         run.Result.Phases,
		Metrics:        run.Result.Metrics,
	}
	if err := writeAtomic(filepath.Join(runDir, MetadataFile), func(w io.Writer) error {
		return ExportJSON(w, &meta)
	}); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := writeAtomic(filepath.Join(runDir, TraceFile), func(w io.Writer) error {
		return writeTrace(w, run.Result)
	}); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	// CreateTemp opens with 0600
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// phaseLabels expands per-phase frame counts into one label per step.
func phaseLabels(phases []sim.PhaseResult) []string {
	labels := make([]string, 0)
	for _, p := range phases {
		for j := 0; j < p.Frames; j++ {
			labels = append(labels, p.Name)
		}
	}
	return labels
}

func writeTrace(w io.Writer, result *sim.Result) error {
	names := slices.Sorted(maps.Keys(result.Traces))
	labels := phaseLabels(result.Phases)

	cw := csv.NewWriter(w)
	header := append([]string{"step", "phase"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, phase := range labels {
		row := []string{strconv.Itoa(i), phase}
		for _, name := range names {
			val := ""
			if tr := result.Traces[name]; i < len(tr) {
				val = strconv.FormatFloat(tr[i], 'f', 6, 64)
			}
			row = append(row, val)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// Trace is the per-step record of a stored run.
type Trace struct {
	Phases []string
	Series map[string][]float64
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, TraceFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &Trace{
		Phases: make([]string, 0),
		Series: make(map[string][]float64),
	}
	if len(records) == 0 {
		return tr, nil
	}

	names := records[0]
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 2 {
			continue
		}
		tr.Phases = append(tr.Phases, record[1])

		for j := 2; j < len(record) && j < len(names); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			tr.Series[names[j]] = append(tr.Series[names[j]], val)
		}
	}

	return tr, nil
}
