// Package archive assembles rendered QR images into a single deflate
// compressed zip, optionally validating every row on the way in. Entry
// order always matches input row order; downstream consumers correlate by
// position and row number.
package archive

import (
	"archive/zip"
	"compress/flate"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qrfoundry/batch-pipeline/internal/qrdecode"
	"github.com/qrfoundry/batch-pipeline/internal/validate"
	"github.com/qrfoundry/batch-pipeline/internal/worker"
	"github.com/qrfoundry/batch-pipeline/pkg/batch"
)

// deflateLevel is fixed; predictable archive size over per-item tuning.
const deflateLevel = 6

const maxLabelLen = 50

// BuildOptions configures one archive build
type BuildOptions struct {
	// Validate runs the row validator on every item before archiving. A
	// content mismatch or undetectable verdict does not stop the build.
	Validate bool

	// Workers sets the validation concurrency. Verdicts are always
	// returned in input order regardless of completion order.
	Workers int

	// RateLimitRPS caps validation decodes per second across all workers.
	// <=0 disables the limit.
	RateLimitRPS float64
}

// FatalError means the whole build was aborted and no archive was retained.
// Validation failures are never fatal; only an undecodable item encoding or
// a destination failure is.
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Build writes one zip archive of all items to w, in input order, and
// returns the per-row verdicts when validation is enabled. The build is
// cancellable between rows via ctx.
func Build(ctx context.Context, w io.Writer, items []batch.RenderedItem, opts BuildOptions) ([]batch.Verdict, error) {
	var verdicts []batch.Verdict
	if opts.Validate {
		results, err := worker.ProcessAll(ctx, items,
			func(_ context.Context, item batch.RenderedItem) (batch.Verdict, error) {
				return validate.ValidateItem(item), nil
			},
			worker.Options{Workers: opts.Workers, RateLimitRPS: opts.RateLimitRPS})
		if err != nil {
			return nil, err
		}
		verdicts = make([]batch.Verdict, 0, len(results))
		for _, res := range results {
			verdicts = append(verdicts, res.Output)
		}
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, deflateLevel)
	})

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := qrdecode.DecodeImageData(item.ImageData)
		if err != nil {
			return nil, &FatalError{Msg: fmt.Sprintf("failed to decode image for row %d", item.Row), Err: err}
		}

		entry, err := zw.Create(EntryName(item.Row, item.Label))
		if err != nil {
			return nil, &FatalError{Msg: "failed to add file to ZIP", Err: err}
		}
		if _, err := entry.Write(raw); err != nil {
			return nil, &FatalError{Msg: "failed to write to ZIP", Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &FatalError{Msg: "failed to finalize ZIP", Err: err}
	}
	return verdicts, nil
}

// BuildFile builds the archive at path. On any fatal error the partial
// file is removed; the destination either holds a complete archive or
// nothing.
func BuildFile(ctx context.Context, path string, items []batch.RenderedItem, opts BuildOptions) ([]batch.Verdict, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &FatalError{Msg: "failed to create ZIP", Err: err}
	}

	verdicts, err := Build(ctx, f, items, opts)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, &FatalError{Msg: "failed to finalize ZIP", Err: err}
	}
	return verdicts, nil
}

// EntryName returns the archive entry name for one row. The zero-padded
// row number prefix keeps names unique even after label sanitization.
func EntryName(row int, label string) string {
	if label != "" {
		return fmt.Sprintf("%03d_%s.png", row, sanitizeLabel(label))
	}
	return fmt.Sprintf("%03d_qr.png", row)
}

// sanitizeLabel maps characters outside [A-Za-z0-9._-] to '_' and truncates
// to maxLabelLen characters.
func sanitizeLabel(s string) string {
	var b strings.Builder
	n := 0
	for _, c := range s {
		if n >= maxLabelLen {
			break
		}
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}
