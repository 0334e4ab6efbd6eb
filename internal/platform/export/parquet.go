// Package export writes projected eligibility rows as Parquet for
// reporting tools.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/hmprotos/dentalverify/internal/eligibility"
)

// Row is one by-network grid row of one service.
type Row struct {
	ResponseID    string   `parquet:"response_id"`
	Service       string   `parquet:"service"`
	Network       string   `parquet:"network"`
	Benefit       string   `parquet:"benefit"`
	Value         string   `parquet:"value"`
	Coverage      string   `parquet:"coverage"`
	Indicator     string   `parquet:"indicator"`
	Authorization string   `parquet:"authorization"`
	Editable      bool     `parquet:"editable"`
	Messages      []string `parquet:"messages,list"`
}

// Rows flattens resp and lists its by-network rows in service order.
func Rows(responseID string, resp *eligibility.Response) []Row {
	var out []Row
	for _, p := range eligibility.ProjectResponse(eligibility.Flatten(resp), eligibility.ByNetwork) {
		for _, r := range p.Network {
			out = append(out, Row{
				ResponseID:    responseID,
				Service:       p.Service,
				Network:       r.Network,
				Benefit:       r.Benefit,
				Value:         r.Value,
				Coverage:      r.Coverage,
				Indicator:     r.Indicator,
				Authorization: r.Authorization,
				Editable:      r.Editable,
				Messages:      r.Messages,
			})
		}
	}
	return out
}

// Writer appends rows of one or more responses to a Parquet stream.
type Writer struct {
	writer *parquet.GenericWriter[Row]
	count  int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		writer: parquet.NewGenericWriter[Row](w, parquet.Compression(&parquet.Snappy)),
	}
}

// WriteResponse writes the rows of resp and returns how many were written.
func (w *Writer) WriteResponse(responseID string, resp *eligibility.Response) (int, error) {
	rows := Rows(responseID, resp)
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	return n, nil
}

// Count returns the number of rows written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes the footer. It does not close the underlying stream.
func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteFile writes the rows of resp to a new Parquet file at path.
func WriteFile(path, responseID string, resp *eligibility.Response) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet file: %w", err)
	}
	w := NewWriter(file)
	n, err := w.WriteResponse(responseID, resp)
	if err != nil {
		file.Close()
		return n, err
	}
	if err := w.Close(); err != nil {
		file.Close()
		return n, err
	}
	return n, file.Close()
}
