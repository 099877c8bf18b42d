// Package resolution runs duplicate detection and merges against stored
// leads. It owns the I/O around the pure dedupe core.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/observability/metrics"
	"github.com/wolfman30/landlead-crm/internal/tenancy"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// ErrTooFewLeads is returned when a merge names fewer than two distinct leads.
var ErrTooFewLeads = errors.New("resolution: merge needs at least two leads")

// MatchCache stores DetectAll results. *matchcache.RedisCache satisfies it.
type MatchCache interface {
	Get(ctx context.Context, key string) ([]dedupe.DuplicateMatch, bool)
	Set(ctx context.Context, key string, matches []dedupe.DuplicateMatch)
	InvalidateOrg(ctx context.Context, orgID string)
}

// AuditLogger records merge and screening events. *compliance.AuditService satisfies it.
type AuditLogger interface {
	LogLeadMerged(ctx context.Context, orgID, primaryID, actor string, mergedIDs []string) error
	LogDoNotContactPropagated(ctx context.Context, orgID, primaryID, actor, previousStatus string) error
	LogDuplicatesFlagged(ctx context.Context, orgID, jobID string, flagCount int) error
}

// KeyFunc derives a cache key from an org and its leads.
type KeyFunc func(orgID string, all []leads.Lead, opts dedupe.Options, policy dedupe.Policy) string

// Config wires a Service.
type Config struct {
	Repo     leads.Repository
	Policy   dedupe.Policy
	Cache    MatchCache
	CacheKey KeyFunc
	Audit    AuditLogger
	Metrics  *metrics.DedupeMetrics
	Tracer   trace.Tracer
	Logger   *logging.Logger
	Now      func() time.Time
}

// Service finds, ranks and merges duplicate leads for an org.
type Service struct {
	repo     leads.Repository
	detector *dedupe.Detector
	selector *dedupe.Selector
	resolver *dedupe.Resolver
	cache    MatchCache
	cacheKey KeyFunc
	audit    AuditLogger
	metrics  *metrics.DedupeMetrics
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewService builds a Service. Cache, audit and metrics are optional.
func NewService(cfg Config) *Service {
	if cfg.Repo == nil {
		panic("resolution: repository cannot be nil")
	}
	if cfg.Policy == (dedupe.Policy{}) {
		cfg.Policy = dedupe.DefaultPolicy()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("landlead.internal.resolution")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	selector := dedupe.NewSelector(cfg.Policy)
	if cfg.Now != nil {
		selector.Now = cfg.Now
	}
	if cfg.Cache != nil && cfg.CacheKey == nil {
		panic("resolution: cache key func required with a cache")
	}
	return &Service{
		repo:     cfg.Repo,
		detector: dedupe.NewDetector(cfg.Policy),
		selector: selector,
		resolver: dedupe.NewResolver(selector),
		cache:    cfg.Cache,
		cacheKey: cfg.CacheKey,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		logger:   cfg.Logger,
	}
}

// FindDuplicates partitions every lead in the org into duplicate groups.
func (s *Service) FindDuplicates(ctx context.Context, orgID string, opts dedupe.Options) ([]dedupe.DuplicateMatch, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.find_duplicates", trace.WithAttributes(attribute.String("org_id", orgID)))
	defer span.End()

	all, err := s.loadAll(ctx, orgID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var key string
	if s.cache != nil {
		key = s.cacheKey(orgID, all, opts, s.detector.Policy())
		cached, ok := s.cache.Get(ctx, key)
		s.metrics.ObserveCacheLookup(ok)
		if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	start := time.Now()
	matches, stats := s.detector.DetectAllWithStats(all, opts)
	s.metrics.ObserveDetection("all", stats.Comparisons, stats.Groups, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("leads", len(all)), attribute.Int("groups", stats.Groups))

	if s.cache != nil {
		s.cache.Set(ctx, key, matches)
	}
	s.logger.Debug("duplicate scan finished", "org_id", orgID, "leads", len(all), "groups", stats.Groups, "comparisons", stats.Comparisons)
	return matches, nil
}

// CheckLead compares a candidate (stored or not) against the org's leads.
func (s *Service) CheckLead(ctx context.Context, orgID string, candidate leads.Lead, opts dedupe.Options) (*dedupe.DuplicateMatch, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.check_lead", trace.WithAttributes(attribute.String("org_id", orgID)))
	defer span.End()

	all, err := s.loadAll(ctx, orgID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	match, ok := s.detector.DetectForTarget(candidate, all, opts)
	groups := 0
	if ok {
		groups = 1
	}
	s.metrics.ObserveDetection("target", len(all), groups, time.Since(start).Seconds())
	return match, nil
}

// RankLeads loads ids and orders them best primary first.
func (s *Service) RankLeads(ctx context.Context, orgID string, ids []string) ([]dedupe.RankedLead, error) {
	group, err := s.loadGroup(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	return s.selector.RankLeads(group)
}

// MergePreview returns the merged record for ids without persisting it.
func (s *Service) MergePreview(ctx context.Context, orgID string, ids []string) (dedupe.MergedLead, error) {
	group, err := s.loadGroup(ctx, orgID, ids)
	if err != nil {
		return dedupe.MergedLead{}, err
	}
	return s.resolver.MergeLeads(group)
}

// MergeResult describes a persisted merge.
type MergeResult struct {
	Lead      leads.Lead `json:"lead"`
	PrimaryID string     `json:"primary_id"`
	MergedIDs []string   `json:"merged_ids"`
}

// Merge folds ids into their suggested primary, saves the survivor and
// deletes the rest in one repository call, then writes the audit trail.
func (s *Service) Merge(ctx context.Context, orgID string, ids []string) (*MergeResult, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.merge", trace.WithAttributes(
		attribute.String("org_id", orgID),
		attribute.Int("leads", len(ids)),
	))
	defer span.End()

	ids = uniqueIDs(ids)
	if len(ids) < 2 {
		return nil, ErrTooFewLeads
	}
	group, err := s.loadGroup(ctx, orgID, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	merged, err := s.resolver.MergeLeads(group)
	if err != nil {
		s.metrics.ObserveMerge("failed")
		return nil, err
	}
	survivor := merged.ToLead()
	survivor.OrgID = orgID

	var previousStatus leads.Status
	removeIDs := make([]string, 0, len(group)-1)
	for _, l := range group {
		if l.ID == survivor.ID {
			previousStatus = l.Status
			continue
		}
		removeIDs = append(removeIDs, l.ID)
	}

	if err := s.repo.ApplyMerge(ctx, orgID, &survivor, removeIDs); err != nil {
		span.RecordError(err)
		s.metrics.ObserveMerge("failed")
		return nil, fmt.Errorf("resolution: apply merge: %w", err)
	}
	s.metrics.ObserveMerge("success")
	if s.cache != nil {
		s.cache.InvalidateOrg(ctx, orgID)
	}

	actor := tenancy.ActorFromContext(ctx)
	s.logger.Info("leads merged", "org_id", orgID, "primary_id", survivor.ID, "merged", len(removeIDs), "actor", actor)
	if s.audit != nil {
		if err := s.audit.LogLeadMerged(ctx, orgID, survivor.ID, actor, removeIDs); err != nil {
			s.logger.Error("failed to audit merge", "error", err, "org_id", orgID, "primary_id", survivor.ID)
		}
		if survivor.Status == leads.StatusDoNotContact && previousStatus != leads.StatusDoNotContact {
			if err := s.audit.LogDoNotContactPropagated(ctx, orgID, survivor.ID, actor, string(previousStatus)); err != nil {
				s.logger.Error("failed to audit do-not-contact propagation", "error", err, "org_id", orgID, "primary_id", survivor.ID)
			}
		}
	}

	return &MergeResult{Lead: survivor, PrimaryID: survivor.ID, MergedIDs: removeIDs}, nil
}

// ImportFlag marks an import row that duplicates stored leads or earlier rows.
type ImportFlag struct {
	RowIndex     int      `json:"row_index"`
	LeadID       string   `json:"lead_id"`
	DuplicateIDs []string `json:"duplicate_ids"`
	Reasons      []string `json:"reasons"`
	Confidence   float64  `json:"confidence"`
}

// ScreenImport checks each row against the org's leads and the rows before it.
// Rows without an id get a synthetic "row-N" id. ctx is checked between rows.
func (s *Service) ScreenImport(ctx context.Context, orgID string, rows []leads.Lead, opts dedupe.Options) ([]ImportFlag, error) {
	ctx, span := s.tracer.Start(ctx, "resolution.screen_import", trace.WithAttributes(
		attribute.String("org_id", orgID),
		attribute.Int("rows", len(rows)),
	))
	defer span.End()

	existing, err := s.loadAll(ctx, orgID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start := time.Now()
	candidates := make([]leads.Lead, 0, len(existing)+len(rows))
	candidates = append(candidates, existing...)
	flags := []ImportFlag{}
	comparisons := 0

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if row.ID == "" {
			row.ID = fmt.Sprintf("row-%d", i)
		}
		comparisons += len(candidates)
		if match, ok := s.detector.DetectForTarget(row, candidates, opts); ok {
			dupIDs := make([]string, 0, len(match.Duplicates))
			for _, d := range match.Duplicates {
				dupIDs = append(dupIDs, d.ID)
			}
			flags = append(flags, ImportFlag{
				RowIndex:     i,
				LeadID:       row.ID,
				DuplicateIDs: dupIDs,
				Reasons:      match.Reasons,
				Confidence:   match.Confidence,
			})
		}
		candidates = append(candidates, row)
	}

	s.metrics.ObserveDetection("import", comparisons, len(flags), time.Since(start).Seconds())
	return flags, nil
}

// RecordScreening writes the audit event for a finished import screen.
func (s *Service) RecordScreening(ctx context.Context, orgID, jobID string, flags int) {
	if s.audit == nil || flags == 0 {
		return
	}
	if err := s.audit.LogDuplicatesFlagged(ctx, orgID, jobID, flags); err != nil {
		s.logger.Error("failed to audit import screen", "error", err, "org_id", orgID, "job_id", jobID)
	}
}

func (s *Service) loadAll(ctx context.Context, orgID string) ([]leads.Lead, error) {
	ptrs, err := s.repo.ListByOrg(ctx, orgID, leads.ListLeadsFilter{})
	if err != nil {
		return nil, fmt.Errorf("resolution: load leads: %w", err)
	}
	all := make([]leads.Lead, len(ptrs))
	for i, p := range ptrs {
		all[i] = *p
	}
	return all, nil
}

func (s *Service) loadGroup(ctx context.Context, orgID string, ids []string) ([]leads.Lead, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, dedupe.ErrEmptyInput
	}
	group, err := s.repo.GetMany(ctx, orgID, ids)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolution: load group: %w", err)
	}
	return group, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
