package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/policyops/acctd/internal/query"
)

type fetchCall struct {
	Table   string
	Filters query.Filters
	OrderBy string
}

type rawCall struct {
	Stmt   string
	Params []any
}

type mergeCall struct {
	Table   string
	Rows    []map[string]any
	Keys    []string
	Exclude bool
}

type insertCall struct {
	Table string
	Rows  []map[string]any
}

type deleteCall struct {
	Table string
	Rows  []map[string]any
	Keys  []string
}

type updateCall struct {
	Table    string
	Field    string
	Value    any
	Via      string
	ViaValue any
}

// fakeStore records every engine call and plays back canned results.
type fakeStore struct {
	fetches []fetchCall
	raws    []rawCall
	merges  []mergeCall
	inserts []insertCall
	deletes []deleteCall
	updates []updateCall

	fetchResult []map[string]any
	fetchErr    error
	rawResult   []map[string]any
	rawErr      error
	mergeErr    error
	insertErr   error
	deleteErr   error
	updateCount int
	updateErr   error
}

func (f *fakeStore) FetchRecords(_ context.Context, table string, filters query.Filters, orderBy string) ([]map[string]any, error) {
	f.fetches = append(f.fetches, fetchCall{Table: table, Filters: filters, OrderBy: orderBy})
	return f.fetchResult, f.fetchErr
}

func (f *fakeStore) RunRawQuery(_ context.Context, stmt string, params []any) ([]map[string]any, error) {
	f.raws = append(f.raws, rawCall{Stmt: stmt, Params: params})
	return f.rawResult, f.rawErr
}

func (f *fakeStore) MergeUpsert(_ context.Context, table string, rows []map[string]any, keys []string, exclude bool) (int, error) {
	f.merges = append(f.merges, mergeCall{Table: table, Rows: rows, Keys: keys, Exclude: exclude})
	if f.mergeErr != nil {
		return 0, f.mergeErr
	}
	return len(rows), nil
}

func (f *fakeStore) InsertRecords(_ context.Context, table string, rows []map[string]any) (int, error) {
	f.inserts = append(f.inserts, insertCall{Table: table, Rows: rows})
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return len(rows), nil
}

func (f *fakeStore) DeleteRecords(_ context.Context, table string, rows []map[string]any, keys []string) (int, error) {
	f.deletes = append(f.deletes, deleteCall{Table: table, Rows: rows, Keys: keys})
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return len(rows), nil
}

func (f *fakeStore) UpdateFieldForAllRows(_ context.Context, table, field string, value any, via string, viaValue any) (int, error) {
	f.updates = append(f.updates, updateCall{Table: table, Field: field, Value: value, Via: via, ViaValue: viaValue})
	return f.updateCount, f.updateErr
}

func registryService(t *testing.T, store RecordStore, name string) *EntityService {
	t.Helper()
	svc, ok := NewRegistry(store).Lookup(name)
	if !ok {
		t.Fatalf("entity %q not registered", name)
	}
	return svc
}

func TestEntityListRenamesFiltersAndRecords(t *testing.T) {
	store := &fakeStore{fetchResult: []map[string]any{
		{"CustNum": "123", "MthNum": 1, "CompDate": "2024-01-02"},
	}}
	svc := registryService(t, store, "sac_claim_review_frequency")

	got, err := svc.List(context.Background(), query.Filters{{Column: "CustomerNum", Value: "123"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	call := store.fetches[0]
	if call.Table != "tblClaimRevFreq_SAC" || call.OrderBy != "MthNum" {
		t.Errorf("fetch call = %+v", call)
	}
	if call.Filters[0].Column != "CustNum" {
		t.Errorf("filter column not renamed: %q", call.Filters[0].Column)
	}

	row := got[0]
	if row["CustomerNum"] != "123" {
		t.Errorf("CustNum not renamed on output: %v", row)
	}
	if _, present := row["CustNum"]; present {
		t.Errorf("database column leaked to output: %v", row)
	}
	if row["CompDate"] != "01-02-2024" {
		t.Errorf("CompDate = %v, want 01-02-2024", row["CompDate"])
	}
}

func TestEntityListRejectsUnknownFilter(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "sac_loss_run_distribution")

	_, err := svc.List(context.Background(), query.Filters{{Column: "AttnTo", Value: "x"}})
	if !errors.Is(err, query.ErrInvalidFilterField) {
		t.Fatalf("err = %v, want ErrInvalidFilterField", err)
	}
	if len(store.fetches) != 0 {
		t.Errorf("fetch should not run on invalid filters")
	}
}

func TestEntityUpsertSplitsOnIdentityKey(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "sac_hcm_users")

	resp, err := svc.Upsert(context.Background(), []map[string]any{
		{"CustomerNum": "1", "UserName": "u1", "PK_Number": 1},
		{"CustomerNum": "", "UserName": "u2"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if resp.Message != "Transaction successful" || resp.Count != 2 {
		t.Errorf("resp = %+v", resp)
	}

	merged := store.merges[0]
	if !reflect.DeepEqual(merged.Rows, []map[string]any{{"CustNum": "1", "UserName": "u1"}}) {
		t.Errorf("merge rows = %v", merged.Rows)
	}
	if !reflect.DeepEqual(merged.Keys, []string{"CustNum", "UserName"}) {
		t.Errorf("merge keys = %v", merged.Keys)
	}

	inserted := store.inserts[0]
	if !reflect.DeepEqual(inserted.Rows, []map[string]any{{"CustNum": "", "UserName": "u2"}}) {
		t.Errorf("insert rows = %v", inserted.Rows)
	}
}

func TestEntityUpsertKeepsIdentityForKeyedMerge(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "sac_affiliates")

	_, err := svc.Upsert(context.Background(), []map[string]any{
		{"PK_Number": 1, "Name": "A"},
		{"PK_Number": nil, "Name": "B"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	merged := store.merges[0]
	if merged.Rows[0]["PK_Number"] != 1 {
		t.Errorf("merge row lost its key: %v", merged.Rows[0])
	}
	if !merged.Exclude {
		t.Errorf("identity key must stay out of the insert branch")
	}
	if _, present := store.inserts[0].Rows[0]["PK_Number"]; present {
		t.Errorf("nil identity key should be dropped before insert: %v", store.inserts[0].Rows[0])
	}
}

func TestEntityUpsertStripsIdentityColumns(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "sac_loss_run_distribution")

	_, err := svc.Upsert(context.Background(), []map[string]any{
		{"CustomerNum": "1", "AttnTo": "Alice", "PK_Number": 9},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	row := store.merges[0].Rows[0]
	if _, present := row["PK_Number"]; present {
		t.Errorf("identity column survived: %v", row)
	}
	if !reflect.DeepEqual(store.merges[0].Keys, []string{"CustomerNum", "AttnTo"}) {
		t.Errorf("merge keys = %v", store.merges[0].Keys)
	}
}

func TestEntityUpsertValidationStopsWrites(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "affinity_program")

	_, err := svc.Upsert(context.Background(), []map[string]any{
		{"ProgramName": "", "NumPol": 123456},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	fields := make(map[string]bool)
	for _, f := range verr.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"ProgramName", "BranchVal", "OnBoardDt", "NumPol"} {
		if !fields[want] {
			t.Errorf("missing field error for %s: %+v", want, verr.Fields)
		}
	}
	if len(store.merges)+len(store.inserts) != 0 {
		t.Errorf("writes must not run on validation failure")
	}
}

func TestEntityUpsertAppliesDefaults(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "affinity_policy_types")

	_, err := svc.Upsert(context.Background(), []map[string]any{
		{"ProgramName": "Prog", "PolicyType": "WC", "AddLDocs": ""},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	row := store.merges[0].Rows[0]
	if row["AddLDocs"] != "No" || row["SpecHand"] != "Auto Assign" {
		t.Errorf("defaults not applied: %v", row)
	}
}

func TestEntityUpsertNormalizesDates(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "affinity_program")

	_, err := svc.Upsert(context.Background(), []map[string]any{
		{"ProgramName": "Prog", "BranchVal": "NY", "OnBoardDt": "01/15/2024", "DateNotif": "1900-01-01"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	row := store.merges[0].Rows[0]
	if _, ok := row["OnBoardDt"].(time.Time); !ok {
		t.Errorf("OnBoardDt not parsed to a time: %T", row["OnBoardDt"])
	}
	if row["DateNotif"] != nil {
		t.Errorf("sentinel date should become nil, got %v", row["DateNotif"])
	}
}

func TestEntityDeleteRequiresOptIn(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "affinity_program")

	_, err := svc.Delete(context.Background(), []map[string]any{{"ProgramName": "Prog"}})
	var ierr InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InputError", err)
	}
	if len(store.deletes) != 0 {
		t.Errorf("delete should not reach the store")
	}
}

func TestEntityDeletePassesKeyColumns(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "sac_loss_run_distribution")

	resp, err := svc.Delete(context.Background(), []map[string]any{
		{"CustomerNum": "1", "AttnTo": "Alice"},
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if resp.Message != "Deletion successful" || resp.Count != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if !reflect.DeepEqual(store.deletes[0].Keys, []string{"CustomerNum", "AttnTo"}) {
		t.Errorf("keys = %v", store.deletes[0].Keys)
	}
}

func TestAffinityPolicyTypeGetJoinsPrimaryAgent(t *testing.T) {
	store := &fakeStore{rawResult: []map[string]any{{"ProgramName": "Prog", "AgentName": "A"}}}
	svc := registryService(t, store, "affinity_policy_types")

	_, err := svc.List(context.Background(), query.Filters{{Column: "ProgramName", Value: "Prog"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	call := store.raws[0]
	if call.Params[0] != "Yes" || call.Params[1] != "Prog" {
		t.Errorf("params = %v", call.Params)
	}
	for _, want := range []string{"LEFT JOIN tblAffinityAgents", "PrimaryAgt = ?", "tblAffinityPolicyType.ProgramName = ?"} {
		if !strings.Contains(call.Stmt, want) {
			t.Errorf("query missing %q:\n%s", want, call.Stmt)
		}
	}
}

func TestSACAccountGetExpandsBranchList(t *testing.T) {
	store := &fakeStore{rawResult: []map[string]any{{"CustomerNum": "1"}}}
	svc := registryService(t, store, "sac_account")

	_, err := svc.List(context.Background(), query.Filters{
		{Column: "BranchName", Value: "NY, LA"},
		{Column: "CustomerNum", Value: "1"},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	call := store.raws[0]
	if !strings.Contains(call.Stmt, "BranchName IN (?, ?)") {
		t.Errorf("query = %s", call.Stmt)
	}
	if !reflect.DeepEqual(call.Params, []any{"NY", "LA", "1"}) {
		t.Errorf("params = %v", call.Params)
	}
}

func TestSACAccountGetSingleBranchUsesPlainFetch(t *testing.T) {
	store := &fakeStore{}
	svc := registryService(t, store, "sac_account")

	_, err := svc.List(context.Background(), query.Filters{{Column: "BranchName", Value: "NY"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(store.raws) != 0 || len(store.fetches) != 1 {
		t.Errorf("single branch should use the filtered fetch path")
	}
}

