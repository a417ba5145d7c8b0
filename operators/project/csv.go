package project

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"colexpr-go/column"
	"colexpr-go/operators"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"
)

var (
	_ = (operators.Operator)(&CSVSource{})
)

// CSVSource streams a CSV file with a header row as record batches. Column
// types are inferred from the first data row: INT64, FLOAT64, BOOL or STR32.
// Empty cells, NULL and cells that do not parse as the column type read as NA.
type CSVSource struct {
	r       *csv.Reader
	closer  io.Closer
	mem     memory.Allocator
	schema  *arrow.Schema
	stypes  []types.SType
	pending []string // first data row, read ahead for type inference
	done    bool
	line    int
}

func NewProjectCSVLeaf(source io.Reader) (*CSVSource, error) {
	r := csv.NewReader(source)
	r.ReuseRecord = true
	src := &CSVSource{r: r, mem: memory.DefaultAllocator}
	if c, ok := source.(io.Closer); ok {
		src.closer = c
	}
	if err := src.readHeader(); err != nil {
		return nil, errors.Wrap(err, "csv header")
	}
	return src, nil
}

// readHeader reads the header and the first data row, which decides the
// column stypes.
func (s *CSVSource) readHeader() error {
	header, err := s.r.Read()
	if err != nil {
		return err
	}
	header = append([]string(nil), header...)
	s.line = 1
	switch first, err := s.r.Read(); {
	case err == io.EOF:
		s.done = true
	case err != nil:
		return err
	default:
		s.pending = append([]string(nil), first...)
		s.line++
	}

	sb := operators.NewRecordBatchBuilder().SchemaBuilder
	seen := make(map[string]struct{}, len(header))
	s.stypes = make([]types.SType, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup {
			return operators.ErrInvalidSchema(fmt.Sprintf("duplicate column %q", name))
		}
		seen[name] = struct{}{}
		var sample string
		if i < len(s.pending) {
			sample = s.pending[i]
		}
		s.stypes[i] = inferSType(sample)
		sb.WithField(name, s.stypes[i])
	}
	s.schema = sb.Build()
	return nil
}

func (s *CSVSource) Next(n uint16) (*operators.RecordBatch, error) {
	if s.done && s.pending == nil {
		return nil, io.EOF
	}
	appenders := make([]cellAppender, len(s.stypes))
	for i, st := range s.stypes {
		appenders[i] = newCellAppender(s.mem, st)
	}
	defer func() {
		for _, a := range appenders {
			a.builder.Release()
		}
	}()

	var rows uint16
	for rows < n {
		row, err := s.nextRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) != len(appenders) {
			return nil, fmt.Errorf("csv line %d has %d fields, header has %d", s.line, len(row), len(appenders))
		}
		for i, cell := range row {
			appenders[i].appendCell(strings.TrimSpace(cell))
		}
		rows++
	}
	if rows == 0 {
		return nil, io.EOF
	}

	columns := make([]column.Column, len(appenders))
	for i, a := range appenders {
		arr := a.builder.NewArray()
		col, err := column.FromArrow(arr)
		arr.Release()
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}
	return &operators.RecordBatch{
		Schema:   s.schema,
		Columns:  columns,
		RowCount: uint64(rows),
	}, nil
}

// nextRow hands out the read-ahead row first, then reads from the file.
func (s *CSVSource) nextRow() ([]string, error) {
	if s.pending != nil {
		row := s.pending
		s.pending = nil
		return row, nil
	}
	if s.done {
		return nil, io.EOF
	}
	row, err := s.r.Read()
	if err == io.EOF {
		s.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrapf(err, "csv line %d", s.line+1)
	}
	s.line++
	return row, nil
}

func (s *CSVSource) Close() error {
	s.done = true
	s.pending = nil
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *CSVSource) Schema() *arrow.Schema {
	return s.schema
}

func isNullCell(cell string) bool {
	return cell == "" || strings.EqualFold(cell, "NULL")
}

// cellAppender parses one cell into its builder, appending NA for null or
// unparsable cells.
type cellAppender struct {
	builder    array.Builder
	appendCell func(cell string)
}

func newCellAppender(mem memory.Allocator, st types.SType) cellAppender {
	switch st {
	case types.Int64:
		b := array.NewInt64Builder(mem)
		return cellAppender{b, parsed(b, func(c string) (int64, error) { return strconv.ParseInt(c, 10, 64) })}
	case types.Float64:
		b := array.NewFloat64Builder(mem)
		return cellAppender{b, parsed(b, func(c string) (float64, error) { return strconv.ParseFloat(c, 64) })}
	case types.Bool:
		b := array.NewBooleanBuilder(mem)
		return cellAppender{b, parsed(b, strconv.ParseBool)}
	default:
		b := array.NewStringBuilder(mem)
		return cellAppender{b, parsed(b, func(c string) (string, error) { return c, nil })}
	}
}

type valueBuilder[T any] interface {
	Append(T)
	AppendNull()
}

func parsed[T any](b valueBuilder[T], parse func(string) (T, error)) func(string) {
	return func(cell string) {
		if isNullCell(cell) {
			b.AppendNull()
			return
		}
		v, err := parse(cell)
		if err != nil {
			b.AppendNull()
			return
		}
		b.Append(v)
	}
}

// inferSType picks the narrowest stype that reads sample. Null samples infer
// as strings.
func inferSType(sample string) types.SType {
	sample = strings.TrimSpace(sample)
	switch {
	case isNullCell(sample):
		return types.Str32
	case sample == "true" || sample == "false":
		return types.Bool
	}
	if _, err := strconv.ParseInt(sample, 10, 64); err == nil {
		return types.Int64
	}
	if _, err := strconv.ParseFloat(sample, 64); err == nil {
		return types.Float64
	}
	return types.Str32
}
