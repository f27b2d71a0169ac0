package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/query"
	"github.com/policyops/acctd/internal/record"
)

const policiesTable = "tblPolicies"

// policyFilters are the read filters the policy list accepts.
var policyFilters = []string{"CustomerNum", "PolicyNum", "PolMod", "PolicyStatus", "PolicyType"}

// PolicyService owns the policy flows that do not fit the generic entity
// shape: endorsement-preserving upserts, the bulk field update, and the
// premium rollup.
type PolicyService struct {
	store RecordStore
}

func NewPolicyService(store RecordStore) *PolicyService {
	return &PolicyService{store: store}
}

// List returns policies with dates formatted and the premium amount
// rendered as a fixed two-decimal string.
func (s *PolicyService) List(ctx context.Context, raw query.Filters) ([]map[string]any, error) {
	filters, err := query.SanitizeFilters(raw, query.Allowed(policyFilters...))
	if err != nil {
		return nil, err
	}
	records, err := s.store.FetchRecords(ctx, policiesTable, filters, "")
	if err != nil {
		return nil, err
	}
	records = record.FormatRecords(records, nil)
	for _, rec := range records {
		if val, ok := rec["PremiumAmt"]; ok {
			rec["PremiumAmt"] = record.NormalizeMoneyString(val)
		}
	}
	return records, nil
}

// Upsert writes one policy. A new policy (no PK) is inserted. An existing
// policy whose PolMod changed is inserted fresh so the prior endorsement row
// survives; an unchanged PolMod updates in place. The response carries the
// primary key of the row that now holds the data.
func (s *PolicyService) Upsert(ctx context.Context, payload map[string]any) (model.StatusResponse, error) {
	normalized := record.NormalizePayload(payload, nil)

	pk := normalized["PK_Number"]
	if !hasValue(pk) {
		delete(normalized, "PK_Number")
		count, err := s.store.InsertRecords(ctx, policiesTable, []map[string]any{normalized})
		if err != nil {
			return model.StatusResponse{}, err
		}
		newPK, err := s.lookupPKNumber(ctx, normalized)
		if err != nil {
			return model.StatusResponse{}, err
		}
		return model.StatusResponse{Message: "Transaction successful", Count: count, PK: newPK}, nil
	}

	existing, err := s.store.FetchRecords(ctx, policiesTable, query.Filters{{Column: "PK_Number", Value: pk}}, "")
	if err != nil {
		return model.StatusResponse{}, err
	}
	if len(existing) > 0 && !sameMod(existing[0]["PolMod"], normalized["PolMod"]) {
		// Endorsement change: keep the old row, insert the new mod.
		delete(normalized, "PK_Number")
		count, err := s.store.InsertRecords(ctx, policiesTable, []map[string]any{normalized})
		if err != nil {
			return model.StatusResponse{}, err
		}
		newPK, err := s.lookupPKNumber(ctx, normalized)
		if err != nil {
			return model.StatusResponse{}, err
		}
		return model.StatusResponse{Message: "Transaction successful", Count: count, PK: newPK}, nil
	}

	count, err := s.store.MergeUpsert(ctx, policiesTable, []map[string]any{normalized}, []string{"PK_Number"}, true)
	if err != nil {
		return model.StatusResponse{}, err
	}
	return model.StatusResponse{Message: "Transaction successful", Count: count, PK: pk}, nil
}

// lookupPKNumber finds the identity key the database assigned to a freshly
// inserted policy row.
func (s *PolicyService) lookupPKNumber(ctx context.Context, rec map[string]any) (any, error) {
	stmt := "SELECT TOP 1 PK_Number FROM tblPolicies WHERE CustomerNum = ? AND PolicyNum = ? AND PolMod = ? ORDER BY PK_Number DESC"
	rows, err := s.store.RunRawQuery(ctx, stmt, []any{rec["CustomerNum"], rec["PolicyNum"], rec["PolMod"]})
	if err != nil {
		return nil, fmt.Errorf("lookup policy key: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0]["PK_Number"], nil
}

func sameMod(a, b any) bool {
	return strings.TrimSpace(fmt.Sprint(a)) == strings.TrimSpace(fmt.Sprint(b))
}

// UpdateFieldForAll sets one column across every policy matching a single
// predicate column. Both column names are caller-supplied and validated
// before use; date-named fields must carry parseable date values.
func (s *PolicyService) UpdateFieldForAll(ctx context.Context, payload map[string]any) (model.StatusResponse, error) {
	fieldName, _ := payload["fieldName"].(string)
	updateVia, _ := payload["updateVia"].(string)
	fieldValue, hasField := payload["fieldValue"]
	viaValue, hasVia := payload["updateViaValue"]

	if fieldName == "" || updateVia == "" || !hasField || !hasVia {
		return model.StatusResponse{}, InputError("fieldName, updateVia, fieldValue and updateViaValue are required")
	}
	if err := query.EnsureSafeIdentifier(fieldName); err != nil {
		return model.StatusResponse{}, InputError(fmt.Sprintf("invalid field name: %s", fieldName))
	}
	if err := query.EnsureSafeIdentifier(updateVia); err != nil {
		return model.StatusResponse{}, InputError(fmt.Sprintf("invalid field name: %s", updateVia))
	}

	if record.IsDateField(fieldName) {
		parsed := record.ParseDateInput(fieldValue)
		if _, stillString := parsed.(string); stillString {
			return model.StatusResponse{}, InputError(fmt.Sprintf("invalid date value for %s", fieldName))
		}
		fieldValue = parsed
	}

	count, err := s.store.UpdateFieldForAllRows(ctx, policiesTable, fieldName, fieldValue, updateVia, viaValue)
	if err != nil {
		return model.StatusResponse{}, err
	}
	return model.StatusResponse{Message: "Update successful", Count: count}, nil
}

// Premium returns the summed premium for the filtered policies as a
// two-decimal string.
func (s *PolicyService) Premium(ctx context.Context, raw query.Filters) (map[string]any, error) {
	filters, err := query.SanitizeFilters(raw, query.Allowed(policyFilters...))
	if err != nil {
		return nil, err
	}

	stmt := "SELECT SUM(PremiumAmt) AS Premium FROM tblPolicies"
	params := make([]any, 0, len(filters))
	for i, f := range filters {
		if i == 0 {
			stmt += " WHERE "
		} else {
			stmt += " AND "
		}
		stmt += f.Column + " = ?"
		params = append(params, f.Value)
	}

	rows, err := s.store.RunRawQuery(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	var premium any
	if len(rows) > 0 {
		premium = rows[0]["Premium"]
	}
	return map[string]any{"Premium": record.NormalizeMoneyString(premium)}, nil
}
