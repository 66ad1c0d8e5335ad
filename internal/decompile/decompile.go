// Package decompile turns raw report text into a report.DecompiledReport by
// running the detector set, detecting the report type, rebuilding the
// heading hierarchy and scoring overall confidence.
package decompile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goassess/internal/detect"
	"github.com/hyperifyio/goassess/internal/normalize"
	"github.com/hyperifyio/goassess/internal/registry"
	"github.com/hyperifyio/goassess/internal/report"
)

var (
	// ErrUnsupportedFormat is returned for a format tag outside report.Format.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrInvalidEncoding is returned when the input is not valid UTF-8.
	ErrInvalidEncoding = errors.New("input is not valid UTF-8")
)

// IngestError is returned when the input is rejected before any detector
// runs. It carries enough about the input to trace the rejected document.
type IngestError struct {
	Format report.Format
	Bytes  int
	Hash   string
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s input (%d bytes, sha256 %s): %v", e.Format, e.Bytes, shortHash(e.Hash), e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Weights are the fixed contributions of each detector to the overall
// confidence score. List and table detectors carry no weight.
var Weights = map[report.DetectorKind]float64{
	report.DetectHeading:     0.2,
	report.DetectSection:     0.3,
	report.DetectMetadata:    0.15,
	report.DetectTerminology: 0.1,
	report.DetectCompliance:  0.15,
	report.DetectAppendix:    0.1,
}

// MinTypeScore is the lowest report-type score that is accepted.
const MinTypeScore = 5

// Decompiler runs the detector pipeline.
type Decompiler struct {
	detectors []detect.Detector
	types     registry.Source
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Decompiler.
type Option func(*Decompiler)

// WithDetectors replaces the default detector set.
func WithDetectors(ds ...detect.Detector) Option {
	return func(d *Decompiler) { d.detectors = ds }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Decompiler) { d.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Decompiler) { d.now = now }
}

// WithIDFunc sets the report id generator.
func WithIDFunc(fn func() string) Option {
	return func(d *Decompiler) { d.newID = fn }
}

// New returns a Decompiler using types for report-type detection. types may
// be nil, in which case every report is left untyped.
func New(types registry.Source, opts ...Option) *Decompiler {
	d := &Decompiler{
		detectors: detect.Default(),
		types:     types,
		logger:    log.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decompile produces a fully populated report from raw text. A detector
// failure is recorded as a warning and does not abort the run; an
// *IngestError is returned when the input is rejected up front.
func (d *Decompiler) Decompile(ctx context.Context, raw string, format report.Format) (*report.DecompiledReport, error) {
	return d.DecompileAs(ctx, raw, format, "")
}

// DecompileAs is Decompile with the report type fixed to typeID instead of
// detected. An empty or unknown typeID falls back to detection.
func (d *Decompiler) DecompileAs(ctx context.Context, raw string, format report.Format, typeID string) (*report.DecompiledReport, error) {
	if err := d.admit(ctx, raw, format); err != nil {
		return nil, err
	}
	start := d.now()
	text := normalize.Text(raw)
	sum := sha256.Sum256([]byte(text))
	rep := &report.DecompiledReport{
		ID:                d.newID(),
		ContentHash:       hex.EncodeToString(sum[:]),
		Format:            format,
		RawText:           raw,
		NormalizedText:    text,
		Sections:          report.Sections{},
		Terminology:       []report.TermEntry{},
		ComplianceMarkers: []report.ComplianceMarker{},
		Detectors:         make(map[report.DetectorKind]report.DetectorSummary, len(d.detectors)),
		CreatedAt:         start,
	}

	in := detect.NewInput(text)
	for _, det := range d.detectors {
		d.runDetector(det, in, rep)
	}

	d.assignType(rep, typeID)
	BuildHierarchy(rep.Sections)
	rep.Structure = BuildStructureMap(rep.Sections)
	rep.ConfidenceScore = Confidence(rep.Detectors)

	rep.ProcessedAt = d.now()
	rep.ProcessingTime = rep.ProcessedAt.Sub(start)
	d.logger.Debug().
		Str("report", rep.ID).
		Str("type", rep.ReportTypeID).
		Int("sections", len(rep.Sections)).
		Float64("confidence", rep.ConfidenceScore).
		Int("warnings", len(rep.Warnings)).
		Msg("decompiled report")
	return rep, nil
}

func (d *Decompiler) admit(ctx context.Context, raw string, format report.Format) error {
	var cause error
	switch {
	case ctx.Err() != nil:
		cause = ctx.Err()
	case !format.Valid():
		cause = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	case !utf8.ValidString(raw):
		cause = ErrInvalidEncoding
	default:
		return nil
	}
	sum := sha256.Sum256([]byte(raw))
	return &IngestError{Format: format, Bytes: len(raw), Hash: hex.EncodeToString(sum[:]), Err: cause}
}

func (d *Decompiler) runDetector(det detect.Detector, in detect.Input, rep *report.DecompiledReport) {
	kind := det.Kind()
	res, err := safeDetect(det, in)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s detector failed: %v", kind, err))
		rep.Detectors[kind] = report.DetectorSummary{Failed: true}
		d.logger.Warn().Err(err).Str("detector", string(kind)).Msg("detector failed; continuing")
		return
	}
	rep.Sections = append(rep.Sections, res.Sections...)
	rep.Terminology = append(rep.Terminology, res.Terms...)
	rep.ComplianceMarkers = append(rep.ComplianceMarkers, res.Markers...)
	if res.Metadata != nil {
		rep.Metadata = *res.Metadata
	}
	rep.Detectors[kind] = report.DetectorSummary{Count: res.Count(), Confidence: res.Confidence}
	d.logger.Debug().Str("detector", string(kind)).Int("count", res.Count()).Float64("confidence", res.Confidence).Msg("detector finished")
}

func safeDetect(det detect.Detector, in detect.Input) (res detect.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return det.Detect(in)
}

func (d *Decompiler) assignType(rep *report.DecompiledReport, typeID string) {
	if d.types == nil {
		return
	}
	if typeID != "" {
		if t, ok := d.resolve(typeID); ok {
			rep.ReportTypeID = t.ID
			rep.ReportTypeForced = true
			rep.ReportTypeScore = ScoreReportType(strings.ToLower(rep.NormalizedText), rep.Sections, rep.ComplianceMarkers, t)
			return
		}
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("unknown report type %q; detecting instead", typeID))
	}
	id, score := DetectReportType(rep.NormalizedText, rep.Sections, rep.ComplianceMarkers, d.types.List())
	if id != "" {
		rep.ReportTypeID = id
		rep.ReportTypeScore = score
	}
}

// Resolver is implemented by sources that accept names and aliases as well
// as ids, such as *registry.Registry.
type Resolver interface {
	Lookup(s string) (registry.ReportType, bool)
}

// resolve maps a forced type to a registered one, by alias when the source
// supports it.
func (d *Decompiler) resolve(typeID string) (registry.ReportType, bool) {
	if r, ok := d.types.(Resolver); ok {
		return r.Lookup(typeID)
	}
	return d.types.Get(typeID)
}

// Confidence is the weighted mean of the confidences of detectors that ran
// successfully, renormalized by the weights present. It is 0 when no
// weighted detector contributed.
func Confidence(summaries map[report.DetectorKind]report.DetectorSummary) float64 {
	var num, den float64
	for _, kind := range report.AllDetectors {
		s, ok := summaries[kind]
		if !ok || s.Failed {
			continue
		}
		w := Weights[kind]
		num += w * s.Confidence
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
