package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tripplanner/backend/internal/config"
	"github.com/tripplanner/backend/internal/events"
	"github.com/tripplanner/backend/internal/forensics"
	"github.com/tripplanner/backend/internal/metrics"
	"github.com/tripplanner/backend/internal/models"
	"github.com/tripplanner/backend/internal/repositories"
	"go.uber.org/zap"
)

const targetTypeBundle = "forensics_bundle"

type AuditStore interface {
	ListAdminActions(ctx context.Context, q repositories.AuditQuery) ([]models.AdminAuditLog, error)
	ListUserChanges(ctx context.Context, q repositories.AuditQuery) ([]models.UserChangeLog, error)
	GetAdminAction(ctx context.Context, id uuid.UUID) (*models.AdminAuditLog, error)
	GetUserChange(ctx context.Context, id uuid.UUID) (*models.UserChangeLog, error)
	LogAdminAction(ctx context.Context, entry models.AdminAuditLog) (uuid.UUID, error)
}

type ArchiveStore interface {
	Insert(ctx context.Context, a *models.ForensicsArchive) (bool, error)
	List(ctx context.Context, limit, offset int) ([]models.ForensicsArchive, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ForensicsArchive, error)
}

// Actor is the console user on whose behalf an operation runs.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

type ForensicsService struct {
	audit     AuditStore
	archives  ArchiveStore
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewForensicsService(
	audit AuditStore,
	archives ArchiveStore,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *ForensicsService {
	return &ForensicsService{
		audit:     audit,
		archives:  archives,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Export fetches both audit trails, applies filters, builds the replay bundle
// and records the export in the admin trail. The bundle is only returned once
// the export entry is stored.
func (s *ForensicsService) Export(ctx context.Context, actor Actor, filters ExportFilters) (forensics.ReplayBundle, error) {
	start := time.Now()
	bundle, err := s.export(ctx, actor, filters)
	switch {
	case errors.Is(err, ErrExportTooLarge):
		metrics.ExportsTotal.WithLabelValues(metrics.ResultTooLarge).Inc()
	case err != nil:
		metrics.ExportsTotal.WithLabelValues(metrics.ResultError).Inc()
	default:
		metrics.ExportsTotal.WithLabelValues(metrics.ResultOK).Inc()
		metrics.ExportEvents.Observe(float64(bundle.Totals.EventCount))
		metrics.ExportDuration.Observe(time.Since(start).Seconds())
	}
	return bundle, err
}

func (s *ForensicsService) export(ctx context.Context, actor Actor, filters ExportFilters) (forensics.ReplayBundle, error) {
	if err := filters.Validate(); err != nil {
		return forensics.ReplayBundle{}, err
	}

	q := repositories.AuditQuery{Since: filters.DateFrom, Limit: s.cfg.ExportMaxRows + 1}
	if filters.DateTo != nil {
		until := filters.DateTo.Add(time.Millisecond)
		q.Until = &until
	}
	records, err := s.fetch(ctx, filters.Sources, q, true)
	if err != nil {
		return forensics.ReplayBundle{}, err
	}

	echo := filters.Raw
	if echo == nil {
		echo = filters.AsMap()
	}
	bundle := forensics.BuildReplayBundle(ApplyExportFilters(records, filters), forensics.BundleOptions{
		GeneratedAt: models.FormatTimestamp(s.now()),
		Filters:     echo,
	})

	entry := models.AdminAuditLog{
		AdminUserID: &actor.UserID,
		Action:      forensics.ActionAdminExport,
		TargetType:  targetTypeBundle,
		Metadata: map[string]any{
			"schema":            bundle.Schema,
			"generated_at":      bundle.GeneratedAt,
			"event_count":       bundle.Totals.EventCount,
			"correlation_count": bundle.Totals.CorrelationCount,
			"filters":           bundle.Filters,
		},
	}
	if actor.Email != "" {
		entry.AdminEmail = &actor.Email
	}
	auditID, err := s.audit.LogAdminAction(ctx, entry)
	if err != nil {
		s.log.Error("failed to record export", zap.String("actor", actor.UserID.String()), zap.Error(err))
		return forensics.ReplayBundle{}, fmt.Errorf("record export: %w", err)
	}

	s.log.Info("forensics bundle exported",
		zap.String("audit_id", auditID.String()),
		zap.String("actor", actor.UserID.String()),
		zap.Int("events", bundle.Totals.EventCount),
		zap.Int("correlations", bundle.Totals.CorrelationCount),
	)
	s.publish(ctx, events.EventForensicsExportCreated, map[string]any{
		"audit_id":      auditID.String(),
		"actor_user_id": actor.UserID.String(),
		"generated_at":  bundle.GeneratedAt,
		"event_count":   bundle.Totals.EventCount,
	})
	return bundle, nil
}

// TimelineQuery selects the window shown on the admin timeline. Limit <= 0
// uses the configured default.
type TimelineQuery struct {
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Sources []string
}

// TimelineRow is one merged audit record with its rendered change summary.
type TimelineRow struct {
	Record       forensics.ChangeRecord `json:"record"`
	Label        forensics.ActionLabel  `json:"label"`
	Diff         []forensics.DiffEntry  `json:"diff"`
	UndoSourceID string                 `json:"undo_source_id,omitempty"`
	UndoResolved bool                   `json:"undo_resolved"`
	InvertedDiff []forensics.DiffEntry  `json:"inverted_diff,omitempty"`
}

// Timeline merges both trails newest first. Undo rows are resolved against
// the fetched window only; an undo whose source lies outside it stays
// unresolved.
func (s *ForensicsService) Timeline(ctx context.Context, q TimelineQuery) ([]TimelineRow, error) {
	for _, src := range q.Sources {
		if !forensics.Source(src).Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSource, src)
		}
	}
	if q.Since != nil && q.Until != nil && !q.Until.After(*q.Since) {
		return nil, fmt.Errorf("%w: until must follow since", ErrInvalidRange)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.TimelineDefaultLimit
	}
	if s.cfg.ExportMaxRows > 0 && limit > s.cfg.ExportMaxRows {
		limit = s.cfg.ExportMaxRows
	}

	records, err := s.fetch(ctx, q.Sources, repositories.AuditQuery{
		Since: q.Since, Until: q.Until, Limit: limit, NewestFirst: true,
	}, false)
	if err != nil {
		return nil, err
	}

	index := forensics.IndexTimeline(records)
	sorted := forensics.SortTimeline(records, true)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	rows := make([]TimelineRow, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, s.describe(r, index))
	}
	return rows, nil
}

// RecordDiff loads one record and, for undo records, follows the undo chain
// hop by hop through the store to build the lookup the resolver needs.
func (s *ForensicsService) RecordDiff(ctx context.Context, source, id string) (*TimelineRow, error) {
	src := forensics.Source(source)
	if !src.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}

	record, err := s.getRecord(ctx, src, id)
	if err != nil {
		return nil, err
	}

	index := map[string]forensics.TimelineEntry{record.ID: {Kind: record.Source, Record: *record}}
	if record.Action == forensics.ActionAdminUndo {
		if err := s.walkUndoChain(ctx, *record, index); err != nil {
			return nil, err
		}
	}

	row := s.describe(*record, index)
	return &row, nil
}

func (s *ForensicsService) describe(r forensics.ChangeRecord, index map[string]forensics.TimelineEntry) TimelineRow {
	row := TimelineRow{
		Record: r,
		Label:  forensics.ActionLabelFor(r.Action),
		Diff:   forensics.ExtractDiffEntries(r),
	}
	if r.Action != forensics.ActionAdminUndo {
		return row
	}
	if srcID, ok := forensics.ResolveUndoSourceID(r); ok {
		row.UndoSourceID = srcID
	}
	row.InvertedDiff, row.UndoResolved = forensics.ResolveInvertedDiff(r, index)
	if row.UndoResolved {
		metrics.UndoResolutions.WithLabelValues(metrics.ResultResolved).Inc()
	} else {
		metrics.UndoResolutions.WithLabelValues(metrics.ResultMissing).Inc()
	}
	return row
}

func (s *ForensicsService) walkUndoChain(ctx context.Context, start forensics.ChangeRecord, index map[string]forensics.TimelineEntry) error {
	cur := start
	for hop := 0; hop < forensics.MaxUndoHops; hop++ {
		srcID, ok := forensics.ResolveUndoSourceID(cur)
		if !ok {
			return nil
		}
		if _, seen := index[srcID]; seen {
			return nil
		}

		next, err := s.lookupAny(ctx, srcID)
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		index[srcID] = forensics.TimelineEntry{Kind: next.Source, Record: *next}
		if next.Source != forensics.SourceAdmin || next.Action != forensics.ActionAdminUndo {
			return nil
		}
		cur = *next
	}
	return nil
}

// lookupAny finds an id in either trail. Undo references do not say which
// trail they point into.
func (s *ForensicsService) lookupAny(ctx context.Context, id string) (*forensics.ChangeRecord, error) {
	r, err := s.getRecord(ctx, forensics.SourceAdmin, id)
	if errors.Is(err, ErrRecordNotFound) {
		return s.getRecord(ctx, forensics.SourceUser, id)
	}
	return r, err
}

func (s *ForensicsService) getRecord(ctx context.Context, src forensics.Source, id string) (*forensics.ChangeRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, src, id)
	}

	var record forensics.ChangeRecord
	switch src {
	case forensics.SourceAdmin:
		l, err := s.audit.GetAdminAction(ctx, uid)
		if err != nil {
			return nil, s.lookupError(src, id, err)
		}
		record = l.ChangeRecord()
	default:
		l, err := s.audit.GetUserChange(ctx, uid)
		if err != nil {
			return nil, s.lookupError(src, id, err)
		}
		record = l.ChangeRecord()
	}
	return &record, nil
}

func (s *ForensicsService) lookupError(src forensics.Source, id string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, src, id)
	}
	return fmt.Errorf("load %s record %s: %w", src, id, err)
}

// fetch loads both trails (or only the requested sources) as change records.
// With capped set, a source returning more than ExportMaxRows rows fails with
// ErrExportTooLarge; callers pass Limit ExportMaxRows+1 to detect overflow.
func (s *ForensicsService) fetch(ctx context.Context, sources []string, q repositories.AuditQuery, capped bool) ([]forensics.ChangeRecord, error) {
	var records []forensics.ChangeRecord
	tooLarge := func(n int) bool {
		return capped && s.cfg.ExportMaxRows > 0 && n > s.cfg.ExportMaxRows
	}

	if allowed(sources, string(forensics.SourceAdmin)) {
		logs, err := s.audit.ListAdminActions(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch admin trail: %w", err)
		}
		if tooLarge(len(logs)) {
			return nil, fmt.Errorf("%w: more than %d admin records", ErrExportTooLarge, s.cfg.ExportMaxRows)
		}
		for _, l := range logs {
			records = append(records, l.ChangeRecord())
		}
	}

	if allowed(sources, string(forensics.SourceUser)) {
		logs, err := s.audit.ListUserChanges(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch user trail: %w", err)
		}
		if tooLarge(len(logs)) {
			return nil, fmt.Errorf("%w: more than %d user records", ErrExportTooLarge, s.cfg.ExportMaxRows)
		}
		for _, l := range logs {
			records = append(records, l.ChangeRecord())
		}
	}

	return records, nil
}

// Archive bundles every record in [windowStart, windowEnd) and stores it.
// It reports false when the window was already archived. actor is nil for
// the background worker.
func (s *ForensicsService) Archive(ctx context.Context, actor *Actor, windowStart, windowEnd time.Time) (*models.ForensicsArchive, bool, error) {
	archive, created, err := s.archive(ctx, actor, windowStart.UTC(), windowEnd.UTC())
	switch {
	case errors.Is(err, ErrExportTooLarge):
		metrics.ArchivesTotal.WithLabelValues(metrics.ResultTooLarge).Inc()
	case err != nil:
		metrics.ArchivesTotal.WithLabelValues(metrics.ResultError).Inc()
	case !created:
		metrics.ArchivesTotal.WithLabelValues(metrics.ResultSkipped).Inc()
	default:
		metrics.ArchivesTotal.WithLabelValues(metrics.ResultOK).Inc()
	}
	return archive, created, err
}

func (s *ForensicsService) archive(ctx context.Context, actor *Actor, windowStart, windowEnd time.Time) (*models.ForensicsArchive, bool, error) {
	if !windowEnd.After(windowStart) {
		return nil, false, fmt.Errorf("%w: window end must follow start", ErrInvalidRange)
	}

	records, err := s.fetch(ctx, nil, repositories.AuditQuery{
		Since: &windowStart, Until: &windowEnd, Limit: s.cfg.ExportMaxRows + 1,
	}, true)
	if err != nil {
		return nil, false, err
	}

	bundle := forensics.BuildReplayBundle(records, forensics.BundleOptions{
		GeneratedAt: models.FormatTimestamp(s.now()),
		Filters: map[string]any{
			"date_from": models.FormatTimestamp(windowStart),
			"date_to":   models.FormatTimestamp(windowEnd),
		},
	})
	raw, err := json.Marshal(bundle)
	if err != nil {
		return nil, false, fmt.Errorf("encode archive bundle: %w", err)
	}

	archive := &models.ForensicsArchive{
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		EventCount:       bundle.Totals.EventCount,
		CorrelationCount: bundle.Totals.CorrelationCount,
		Bundle:           raw,
	}
	created, err := s.archives.Insert(ctx, archive)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.log.Info("archive window already stored", zap.Time("window_start", windowStart))
		return archive, false, nil
	}

	entry := models.AdminAuditLog{
		Action:     forensics.ActionAdminArchive,
		TargetType: "forensics_archive",
		Metadata: map[string]any{
			"window_start": models.FormatTimestamp(windowStart),
			"window_end":   models.FormatTimestamp(windowEnd),
			"event_count":  archive.EventCount,
		},
	}
	archiveID := archive.ID.String()
	entry.TargetID = &archiveID
	if actor != nil {
		entry.AdminUserID = &actor.UserID
		if actor.Email != "" {
			entry.AdminEmail = &actor.Email
		}
	}
	if _, err := s.audit.LogAdminAction(ctx, entry); err != nil {
		s.log.Error("failed to record archive", zap.String("archive_id", archiveID), zap.Error(err))
	}

	s.log.Info("forensics window archived",
		zap.String("archive_id", archiveID),
		zap.Time("window_start", windowStart),
		zap.Int("events", archive.EventCount),
	)
	s.publish(ctx, events.EventForensicsArchiveCreated, map[string]any{
		"archive_id":   archiveID,
		"window_start": models.FormatTimestamp(windowStart),
		"window_end":   models.FormatTimestamp(windowEnd),
		"event_count":  archive.EventCount,
	})
	return archive, true, nil
}

func (s *ForensicsService) ListArchives(ctx context.Context, limit, offset int) ([]models.ForensicsArchive, error) {
	return s.archives.List(ctx, limit, offset)
}

func (s *ForensicsService) GetArchive(ctx context.Context, id uuid.UUID) (*models.ForensicsArchive, error) {
	a, err := s.archives.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: archive %s", ErrRecordNotFound, id)
	}
	return a, err
}

func (s *ForensicsService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, events.StreamAdminAudit, events.Event{Type: eventType, Payload: payload})
	if err != nil {
		s.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
