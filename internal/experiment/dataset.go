package experiment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/LeparaLaMapara/mlopt/internal/strategy"
)

// Sample is one labeled training point: the parameters, the strategy
// key of the solved problem, and solve metadata kept for reporting.
type Sample struct {
	Theta     []float64
	Key       string
	Objective float64
	SolveTime time.Duration
}

// Dataset accumulates samples during generation. Appends take a lock so
// solver workers can share one dataset; everything else assumes
// generation has finished.
type Dataset struct {
	mu      sync.Mutex
	samples []Sample
	table   *strategy.Table
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{table: strategy.NewTable()}
}

// Add appends one solved sample and registers its strategy, returning
// the strategy key.
func (d *Dataset) Add(theta []float64, st strategy.Strategy, objective float64, solveTime time.Duration) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := d.table.Add(st)
	d.samples = append(d.samples, Sample{
		Theta:     theta,
		Key:       key,
		Objective: objective,
		SolveTime: solveTime,
	})
	return key
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.samples)
}

// Distinct returns the number of distinct strategies seen so far.
func (d *Dataset) Distinct() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table.Len()
}

// Samples returns a copy of the sample slice.
func (d *Dataset) Samples() []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Sample(nil), d.samples...)
}

// Features returns the parameter vectors in sample order, one row per
// sample, shaped for learner.Fit.
func (d *Dataset) Features() [][]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]float64, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.Theta
	}
	return out
}

// Labels returns the strategy keys in sample order.
func (d *Dataset) Labels() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.samples))
	for i, s := range d.samples {
		out[i] = s.Key
	}
	return out
}

// Table returns the strategies seen in this dataset.
func (d *Dataset) Table() *strategy.Table {
	return d.table
}

// WriteCSV writes the dataset with one row per sample: the parameter
// components, the strategy key, the objective and the solve seconds.
func (d *Dataset) WriteCSV(w io.Writer) error {
	samples := d.Samples()
	cw := csv.NewWriter(w)

	dim := 0
	if len(samples) > 0 {
		dim = len(samples[0].Theta)
	}
	header := make([]string, 0, dim+3)
	for i := 0; i < dim; i++ {
		header = append(header, "theta_"+strconv.Itoa(i))
	}
	header = append(header, "strategy", "objective", "solve_seconds")
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, dim+3)
	for _, s := range samples {
		row = row[:0]
		for _, v := range s.Theta {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row,
			s.Key,
			strconv.FormatFloat(s.Objective, 'g', -1, 64),
			strconv.FormatFloat(s.SolveTime.Seconds(), 'g', -1, 64),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDatasetCSV loads a dataset written by WriteCSV. Strategy keys are
// parsed back into full strategies so the table is usable for
// warm-started evaluation.
func ReadDatasetCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset has no header row")
	}

	header := records[0]
	if len(header) < 3 {
		return nil, fmt.Errorf("dataset header has %d columns, want at least 3", len(header))
	}
	dim := len(header) - 3

	ds := NewDataset()
	for n, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", n+1, len(rec), len(header))
		}
		theta := make([]float64, dim)
		for i := 0; i < dim; i++ {
			theta[i], err = strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad theta value %q", n+1, rec[i])
			}
		}
		st, err := strategy.ParseKey(rec[dim])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		objective, err := strconv.ParseFloat(rec[dim+1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad objective %q", n+1, rec[dim+1])
		}
		secs, err := strconv.ParseFloat(rec[dim+2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad solve time %q", n+1, rec[dim+2])
		}
		ds.Add(theta, st, objective, time.Duration(secs*float64(time.Second)))
	}
	return ds, nil
}
