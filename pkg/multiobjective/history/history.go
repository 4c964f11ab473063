// Package history exports and imports snapshots of an optimisation run.
//
// A snapshot holds the run options, the problem description and every
// individual of the population at a given generation. Snapshots can be
// plotted, inspected or used to seed a new run.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"k8s.io/klog/v2"

	"github.com/mihai-snyk/placement-optimizer/pkg/multiobjective/framework"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Prefix tells why a snapshot was written.
type Prefix string

const (
	History Prefix = "History"
	Init    Prefix = "Init"
	Final   Prefix = "Final"
)

// Took is the elapsed time of a run split in hours, minutes and seconds.
type Took struct {
	Hours   int     `json:"hours"`
	Minutes int     `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

func NewTook(d time.Duration) Took {
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	return Took{Hours: h, Minutes: m, Seconds: d.Seconds()}
}

func (t Took) Duration() time.Duration {
	return time.Duration(t.Hours)*time.Hour +
		time.Duration(t.Minutes)*time.Minute +
		time.Duration(t.Seconds*float64(time.Second))
}

type Snapshot struct {
	Options                     map[string]string            `json:"options"`
	Problem                     framework.ProblemRecord      `json:"problem"`
	Individuals                 []framework.IndividualRecord `json:"individuals"`
	Generation                  int                          `json:"generation"`
	NumberOfFunctionEvaluations int                          `json:"number_of_function_evaluations"`
	Algorithm                   string                       `json:"algorithm"`
	AdditionalData              map[string]string            `json:"additional_data,omitempty"`
	Took                        Took                         `json:"took"`
	// ExportedOn is a UTC RFC 3339 timestamp.
	ExportedOn string `json:"exported_on"`
}

// FileName returns the file name of a snapshot.
func FileName(prefix Prefix, algorithm string, generation int) string {
	return fmt.Sprintf("%s_%s_gen%d.json", prefix, algorithm, generation)
}

// Save writes the snapshot to dir and returns the path of the new file.
func Save(ctx context.Context, dir string, prefix Prefix, s *Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating history directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot of generation %d: %w", s.Generation, err)
	}
	path := filepath.Join(dir, FileName(prefix, s.Algorithm, s.Generation))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	klog.FromContext(ctx).V(4).Info("Exported snapshot", "path", path, "generation", s.Generation, "individuals", len(s.Individuals))
	return path, nil
}

// ReadFile reads one snapshot.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	s := &Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return s, nil
}

var snapshotName = regexp.MustCompile(`^[A-Za-z]+_.+_gen(\d+)\.json$`)

// ReadFiles reads every snapshot in dir, sorted by generation. Files that
// are not named like snapshots are ignored.
func ReadFiles(dir string) ([]*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing history directory: %w", err)
	}
	var out []*Snapshot
	for _, e := range entries {
		if e.IsDir() || !snapshotName.MatchString(e.Name()) {
			continue
		}
		s, err := ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Generation < out[j].Generation
	})
	return out, nil
}

// GenerationOf parses the generation number out of a snapshot file name.
func GenerationOf(path string) (int, bool) {
	m := snapshotName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	g, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return g, true
}

// Population rebuilds the stored individuals as individuals of problem.
// Objectives are converted back to the problem's internal convention.
func (s *Snapshot) Population(problem *framework.Problem) (*framework.Population, error) {
	if got, want := len(s.Problem.Variables), problem.NumberOfVariables(); got != want {
		return nil, &ResumeMismatchError{What: "variables", Expected: want, Actual: got}
	}
	return framework.PopulationFromRecords(problem, s.Individuals)
}

// ResumeMismatchError is returned when a snapshot does not fit the
// configuration of the run it should seed.
type ResumeMismatchError struct {
	// What is "variables" or "individuals".
	What     string
	Expected int
	Actual   int
}

func (e *ResumeMismatchError) Error() string {
	return fmt.Sprintf("cannot resume from snapshot: expected %d %s, snapshot has %d", e.Expected, e.What, e.Actual)
}

// SeedPopulation loads the population stored at path so that a new run of
// problem can start from it.
func SeedPopulation(ctx context.Context, path string, problem *framework.Problem, expectedSize int) (*framework.Population, error) {
	s, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if got, want := len(s.Problem.Variables), problem.NumberOfVariables(); got != want {
		return nil, &ResumeMismatchError{What: "variables", Expected: want, Actual: got}
	}
	if len(s.Individuals) != expectedSize {
		return nil, &ResumeMismatchError{What: "individuals", Expected: expectedSize, Actual: len(s.Individuals)}
	}
	pop, err := s.Population(problem)
	if err != nil {
		return nil, err
	}
	klog.FromContext(ctx).V(2).Info("Seeded population from snapshot", "path", path, "generation", s.Generation, "individuals", pop.Len())
	return pop, nil
}
