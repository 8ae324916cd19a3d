// Package frame converts paths and ensembles to Arrow records for
// columnar interchange, and streams them in Arrow IPC format.
//
// The layout is wide: one "time" column holding the grid, then one
// float64 column per path named path_0, path_1, ... Consumers such as
// pandas or DuckDB read the stream directly.
package frame

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/quantforge/stoch/internal/models"
)

// TimeColumn is the name of the grid column in every record.
const TimeColumn = "time"

// Schema returns the wide-format schema for numPaths paths.
func Schema(numPaths int) *arrow.Schema {
	fields := make([]arrow.Field, 0, numPaths+1)
	fields = append(fields, arrow.Field{Name: TimeColumn, Type: arrow.PrimitiveTypes.Float64})
	for i := 0; i < numPaths; i++ {
		fields = append(fields, arrow.Field{
			Name: fmt.Sprintf("path_%d", i),
			Type: arrow.PrimitiveTypes.Float64,
		})
	}
	return arrow.NewSchema(fields, nil)
}

// FromEnsemble builds an Arrow record from an ensemble. The caller owns
// the returned record and must Release it.
func FromEnsemble(e models.PathEnsemble) (arrow.Record, error) {
	if e.NumPaths() == 0 || e.Grid.Len() == 0 {
		return nil, fmt.Errorf("%w: empty ensemble", models.ErrInvalidEnsembleSize)
	}
	b := array.NewRecordBuilder(memory.NewGoAllocator(), Schema(e.NumPaths()))
	defer b.Release()

	b.Field(0).(*array.Float64Builder).AppendValues(e.Grid.Points(), nil)
	for i := 0; i < e.NumPaths(); i++ {
		b.Field(i + 1).(*array.Float64Builder).AppendValues(e.Values[i], nil)
	}
	return b.NewRecord(), nil
}

// FromPath builds a single-path record.
func FromPath(p models.Path) (arrow.Record, error) {
	return FromEnsemble(models.PathEnsemble{Grid: p.Grid, Values: [][]float64{p.Values}})
}

// ToEnsemble reconstructs an ensemble from a wide-format record.
func ToEnsemble(rec arrow.Record) (models.PathEnsemble, error) {
	if rec.NumCols() < 2 {
		return models.PathEnsemble{}, fmt.Errorf("%w: record has %d columns, need a time column and at least one path",
			models.ErrInvalidEnsembleSize, rec.NumCols())
	}
	if rec.ColumnName(0) != TimeColumn {
		return models.PathEnsemble{}, fmt.Errorf("%w: first column is %q, want %q",
			models.ErrInvalidGrid, rec.ColumnName(0), TimeColumn)
	}

	times, err := floatColumn(rec, 0)
	if err != nil {
		return models.PathEnsemble{}, err
	}
	grid, err := models.NewGrid(times)
	if err != nil {
		return models.PathEnsemble{}, err
	}

	values := make([][]float64, rec.NumCols()-1)
	for i := range values {
		col, err := floatColumn(rec, i+1)
		if err != nil {
			return models.PathEnsemble{}, err
		}
		values[i] = col
	}
	return models.PathEnsemble{Grid: grid, Values: values}, nil
}

func floatColumn(rec arrow.Record, i int) ([]float64, error) {
	col, ok := rec.Column(i).(*array.Float64)
	if !ok {
		return nil, fmt.Errorf("%w: column %q is %s, want float64",
			models.ErrInvalidParameters, rec.ColumnName(i), rec.Column(i).DataType())
	}
	out := make([]float64, col.Len())
	copy(out, col.Float64Values())
	return out, nil
}

// WriteEnsemble streams an ensemble to w in Arrow IPC stream format.
func WriteEnsemble(w io.Writer, e models.PathEnsemble) error {
	rec, err := FromEnsemble(e)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	return fw.Close()
}

// ReadEnsemble reads one ensemble from an Arrow IPC stream.
func ReadEnsemble(r io.Reader) (models.PathEnsemble, error) {
	fr, err := ipc.NewReader(r)
	if err != nil {
		return models.PathEnsemble{}, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer fr.Release()

	if !fr.Next() {
		if err := fr.Err(); err != nil {
			return models.PathEnsemble{}, fmt.Errorf("reading arrow record: %w", err)
		}
		return models.PathEnsemble{}, fmt.Errorf("%w: arrow stream holds no records", models.ErrInsufficientData)
	}
	return ToEnsemble(fr.Record())
}
