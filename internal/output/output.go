package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/funnel/internal/pipeline"
)

// Writer writes reports in a specific format.
type Writer interface {
	Write(w io.Writer, report *pipeline.Report) error
	WriteTriage(w io.Writer, tri *pipeline.Triage) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is
// empty.
func WriteReport(report *pipeline.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return withOutput(outPath, func(w io.Writer) error {
		return writer.Write(w, report)
	})
}

// WriteTriage writes a triage result to outPath, or to stdout when outPath
// is empty.
func WriteTriage(tri *pipeline.Triage, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return withOutput(outPath, func(w io.Writer) error {
		return writer.WriteTriage(w, tri)
	})
}

func withOutput(outPath string, write func(io.Writer) error) error {
	if outPath == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// errWriter wraps an io.Writer and keeps the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
