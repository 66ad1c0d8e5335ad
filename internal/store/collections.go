package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goassess/internal/report"
)

// Collection names.
const (
	CollectionReports = "reports"
	CollectionRules   = "rules"
)

// Reports persists decompiled reports keyed by report id.
type Reports struct {
	s Store
}

// NewReports wraps s.
func NewReports(s Store) *Reports { return &Reports{s: s} }

// ReportSummary is the listing view of a stored report.
type ReportSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ReportTypeID string    `json:"report_type_id,omitempty"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *Reports) Save(ctx context.Context, rep *report.DecompiledReport) error {
	if rep == nil || rep.ID == "" {
		return errors.New("store: report has no id")
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return r.s.Save(ctx, CollectionReports, rep.ID, b)
}

func (r *Reports) Get(ctx context.Context, id string) (*report.DecompiledReport, error) {
	b, err := r.s.Get(ctx, CollectionReports, id)
	if err != nil {
		return nil, err
	}
	var rep report.DecompiledReport
	if err := json.Unmarshal(b, &rep); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &rep, nil
}

// List returns summaries, newest first.
func (r *Reports) List(ctx context.Context) ([]ReportSummary, error) {
	recs, err := r.s.All(ctx, CollectionReports)
	if err != nil {
		return nil, err
	}
	out := make([]ReportSummary, 0, len(recs))
	for _, rec := range recs {
		var rep report.DecompiledReport
		if err := json.Unmarshal(rec.Data, &rep); err != nil {
			log.Warn().Err(err).Str("key", rec.Key).Msg("skipping unreadable report")
			continue
		}
		out = append(out, ReportSummary{
			ID:           rep.ID,
			Title:        rep.Metadata.Title,
			ReportTypeID: rep.ReportTypeID,
			Confidence:   rep.ConfidenceScore,
			CreatedAt:    rep.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Reports) Delete(ctx context.Context, id string) error {
	return r.s.Delete(ctx, CollectionReports, id)
}

// RuleOverride records an operator's enable or disable of a rule.
type RuleOverride struct {
	ID        string    `json:"id"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleToggler is satisfied by the validation engine.
type RuleToggler interface {
	SetEnabled(id string, enabled bool) error
}

// Rules persists rule overrides keyed by rule id.
type Rules struct {
	s      Store
	logger zerolog.Logger
}

// NewRules wraps s.
func NewRules(s Store) *Rules { return &Rules{s: s, logger: log.Logger} }

// WithLogger returns a copy of r using l.
func (r *Rules) WithLogger(l zerolog.Logger) *Rules {
	c := *r
	c.logger = l
	return &c
}

func (r *Rules) SetEnabled(ctx context.Context, id string, enabled bool) error {
	b, err := json.Marshal(RuleOverride{ID: id, Enabled: enabled, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return r.s.Save(ctx, CollectionRules, id, b)
}

// Overrides returns stored overrides ordered by rule id.
func (r *Rules) Overrides(ctx context.Context) ([]RuleOverride, error) {
	recs, err := r.s.All(ctx, CollectionRules)
	if err != nil {
		return nil, err
	}
	out := make([]RuleOverride, 0, len(recs))
	for _, rec := range recs {
		var o RuleOverride
		if err := json.Unmarshal(rec.Data, &o); err != nil {
			r.logger.Warn().Err(err).Str("key", rec.Key).Msg("skipping unreadable rule override")
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Apply replays stored overrides onto t. Overrides for rules t does not
// know are logged and skipped.
func (r *Rules) Apply(ctx context.Context, t RuleToggler) error {
	overrides, err := r.Overrides(ctx)
	if err != nil {
		return err
	}
	for _, o := range overrides {
		if err := t.SetEnabled(o.ID, o.Enabled); err != nil {
			r.logger.Warn().Err(err).Str("rule", o.ID).Msg("ignoring stored rule override")
		}
	}
	return nil
}
