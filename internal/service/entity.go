package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/query"
	"github.com/policyops/acctd/internal/record"
)

// RecordStore is the slice of the store the business services need.
type RecordStore interface {
	FetchRecords(ctx context.Context, table string, filters query.Filters, orderBy string) ([]map[string]any, error)
	RunRawQuery(ctx context.Context, stmt string, params []any) ([]map[string]any, error)
	MergeUpsert(ctx context.Context, table string, rows []map[string]any, keyColumns []string, excludeKeysFromInsert bool) (int, error)
	InsertRecords(ctx context.Context, table string, records []map[string]any) (int, error)
	DeleteRecords(ctx context.Context, table string, rows []map[string]any, keyColumns []string) (int, error)
	UpdateFieldForAllRows(ctx context.Context, table, field string, value any, via string, viaValue any) (int, error)
}

// InputError is a caller mistake that should surface as a 400, carrying the
// message verbatim.
type InputError string

func (e InputError) Error() string { return string(e) }

// ValidationError aggregates every field-level failure found in a payload.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// EntityConfig declares one administered table: where it lives, how rows are
// keyed, which filters reads accept, and the write-path quirks the legacy
// schema demands.
type EntityConfig struct {
	// Name keys the registry; Route is the URL segment the server mounts.
	Name  string
	Route string

	Table      string
	KeyColumns []string

	// AllowedFilters nil means any structurally valid identifier may filter.
	AllowedFilters []string
	OrderBy        string

	// DateFields overrides the date-key naming heuristic when set.
	DateFields []string

	// Defaults fill absent or blank fields before validation.
	Defaults map[string]any

	// Validate checks one row; ValidateRows checks the batch as a whole.
	Validate     func(row map[string]any) []model.FieldError
	ValidateRows func(rows []map[string]any) []model.FieldError

	// RenameColumns maps payload and filter column names to their database
	// names. Reads apply the inverse on the way out.
	RenameColumns map[string]string

	// StripColumns are removed from every merged row, typically identity
	// columns the database assigns itself.
	StripColumns []string

	// SplitColumn, when set, routes rows with a value in that column to the
	// merge path and the rest to plain inserts. SplitKeyColumns override
	// KeyColumns for the merged half. Blank split values are dropped from
	// insert rows so the database can assign them.
	SplitColumn           string
	SplitKeyColumns       []string
	ExcludeKeysFromInsert bool

	AllowDelete bool

	// Get replaces the default filtered SELECT for reads that need joins or
	// other raw predicates.
	Get func(ctx context.Context, store RecordStore, filters query.Filters) ([]map[string]any, error)
}

// EntityService executes reads and writes for one configured entity.
type EntityService struct {
	store RecordStore
	cfg   EntityConfig
}

// NewEntityService binds a configuration to a store.
func NewEntityService(store RecordStore, cfg EntityConfig) *EntityService {
	return &EntityService{store: store, cfg: cfg}
}

// Config exposes the entity's configuration for routing and spec generation.
func (s *EntityService) Config() EntityConfig { return s.cfg }

func (s *EntityService) dateFieldSet() map[string]struct{} {
	if s.cfg.DateFields == nil {
		return nil
	}
	return query.Allowed(s.cfg.DateFields...)
}

func (s *EntityService) renameIn(name string) string {
	if mapped, ok := s.cfg.RenameColumns[name]; ok {
		return mapped
	}
	return name
}

func (s *EntityService) renameRecordsOut(records []map[string]any) []map[string]any {
	if len(s.cfg.RenameColumns) == 0 {
		return records
	}
	inverse := make(map[string]string, len(s.cfg.RenameColumns))
	for from, to := range s.cfg.RenameColumns {
		inverse[to] = from
	}
	for _, rec := range records {
		for dbName, extName := range inverse {
			if val, ok := rec[dbName]; ok {
				delete(rec, dbName)
				rec[extName] = val
			}
		}
	}
	return records
}

// List runs an equality-filtered read and formats the rows for JSON.
func (s *EntityService) List(ctx context.Context, raw query.Filters) ([]map[string]any, error) {
	mapped := make(query.Filters, 0, len(raw))
	for _, f := range raw {
		mapped = append(mapped, query.Filter{Column: s.renameIn(f.Column), Value: f.Value})
	}

	var allowed map[string]struct{}
	if s.cfg.AllowedFilters != nil {
		allowed = query.Allowed(s.cfg.AllowedFilters...)
	}
	filters, err := query.SanitizeFilters(mapped, allowed)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if s.cfg.Get != nil {
		records, err = s.cfg.Get(ctx, s.store, filters)
	} else {
		records, err = s.store.FetchRecords(ctx, s.cfg.Table, filters, s.cfg.OrderBy)
	}
	if err != nil {
		return nil, err
	}

	return record.FormatRecords(s.renameRecordsOut(records), s.dateFieldSet()), nil
}

// prepareRow normalizes dates, applies defaults, and maps column names to
// their database form.
func (s *EntityService) prepareRow(row map[string]any) map[string]any {
	out := record.NormalizePayload(row, s.dateFieldSet())
	for key, def := range s.cfg.Defaults {
		if !hasValue(out[key]) {
			out[key] = def
		}
	}
	if len(s.cfg.RenameColumns) > 0 {
		mapped := make(map[string]any, len(out))
		for key, val := range out {
			mapped[s.renameIn(key)] = val
		}
		out = mapped
	}
	return out
}

func (s *EntityService) validate(rows []map[string]any) error {
	var fields []model.FieldError
	if s.cfg.Validate != nil {
		for _, row := range rows {
			fields = append(fields, s.cfg.Validate(row)...)
		}
	}
	if s.cfg.ValidateRows != nil {
		fields = append(fields, s.cfg.ValidateRows(rows)...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Upsert writes a batch of rows. Rows carrying a value in the split column
// are merged on the key columns; the rest are inserted fresh. Without a
// split column every row is merged.
func (s *EntityService) Upsert(ctx context.Context, rows []map[string]any) (model.StatusResponse, error) {
	prepared := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		prepared = append(prepared, s.prepareRow(row))
	}

	if err := s.validate(prepared); err != nil {
		return model.StatusResponse{}, err
	}

	var merges, inserts []map[string]any
	if s.cfg.SplitColumn == "" {
		merges = prepared
	} else {
		for _, row := range prepared {
			if hasValue(row[s.cfg.SplitColumn]) {
				merges = append(merges, row)
			} else {
				delete(row, s.cfg.SplitColumn)
				inserts = append(inserts, row)
			}
		}
	}

	for _, row := range merges {
		for _, col := range s.cfg.StripColumns {
			delete(row, col)
		}
	}

	mergeKeys := s.cfg.KeyColumns
	if len(s.cfg.SplitKeyColumns) > 0 {
		mergeKeys = s.cfg.SplitKeyColumns
	}

	total, err := s.store.MergeUpsert(ctx, s.cfg.Table, merges, mergeKeys, s.cfg.ExcludeKeysFromInsert)
	if err != nil {
		return model.StatusResponse{}, err
	}
	if len(inserts) > 0 {
		n, err := s.store.InsertRecords(ctx, s.cfg.Table, inserts)
		if err != nil {
			return model.StatusResponse{}, err
		}
		total += n
	}

	return model.StatusResponse{Message: "Transaction successful", Count: total}, nil
}

// Delete removes one row per record, matched on the key columns.
func (s *EntityService) Delete(ctx context.Context, rows []map[string]any) (model.StatusResponse, error) {
	if !s.cfg.AllowDelete {
		return model.StatusResponse{}, InputError(fmt.Sprintf("%s does not support deletion", s.cfg.Name))
	}

	mapped := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]any, len(row))
		for key, val := range row {
			out[s.renameIn(key)] = val
		}
		mapped = append(mapped, out)
	}

	n, err := s.store.DeleteRecords(ctx, s.cfg.Table, mapped, s.cfg.KeyColumns)
	if err != nil {
		return model.StatusResponse{}, err
	}
	return model.StatusResponse{Message: "Deletion successful", Count: n}, nil
}
