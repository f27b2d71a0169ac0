package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDropdownGetNamedQuery(t *testing.T) {
	store := &fakeStore{rawResult: []map[string]any{{"RepName": "R"}}}
	svc := NewDropdownService(store)

	_, err := svc.Get(context.Background(), "LossCtlRep2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	call := store.raws[0]
	if !strings.Contains(call.Stmt, "WHERE Active = ?") {
		t.Errorf("stmt = %s", call.Stmt)
	}
	if !reflect.DeepEqual(call.Params, []any{"Yes"}) {
		t.Errorf("params = %v", call.Params)
	}
}

func TestDropdownGetAll(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	if _, err := svc.Get(context.Background(), "ALL"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(store.raws[0].Stmt, "ORDER BY DD_Type") {
		t.Errorf("stmt = %s", store.raws[0].Stmt)
	}
}

func TestDropdownGetDynamicFallback(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	if _, err := svc.Get(context.Background(), "PolicyStatus"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	call := store.raws[0]
	if !strings.Contains(call.Stmt, "WHERE DD_Type = ?") {
		t.Errorf("stmt = %s", call.Stmt)
	}
	if !reflect.DeepEqual(call.Params, []any{"PolicyStatus"}) {
		t.Errorf("params = %v", call.Params)
	}
}

func TestDropdownGetRequiresName(t *testing.T) {
	svc := NewDropdownService(&fakeStore{})
	_, err := svc.Get(context.Background(), "  ")
	var ierr InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InputError", err)
	}
}

func TestDropdownUpsertRejectsUnknownColumns(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	_, err := svc.Upsert(context.Background(), "BranchName", []map[string]any{
		{"BranchName": "NY", "Zebra": 1, "Alpha": 2},
	})
	var ierr InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InputError", err)
	}
	if ierr.Error() != "Invalid column(s): Alpha, Zebra" {
		t.Errorf("message = %q", ierr.Error())
	}
	if len(store.merges)+len(store.inserts) != 0 {
		t.Errorf("invalid payload must not reach the store")
	}
}

func TestDropdownUpsertGenericStoreInjectsType(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	resp, err := svc.Upsert(context.Background(), "ClaimType", []map[string]any{
		{"DD_Key": 5, "DD_Value": "Auto"},
		{"DD_Value": "Property", "DD_SortOrder": 2},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if resp.Message != "Upsert successful" || resp.Count != 2 {
		t.Errorf("resp = %+v", resp)
	}

	merged := store.merges[0]
	if merged.Table != "tblDropDowns" || !merged.Exclude {
		t.Errorf("merge call = %+v", merged)
	}
	if merged.Rows[0]["DD_Type"] != "ClaimType" {
		t.Errorf("DD_Type not injected: %v", merged.Rows[0])
	}

	inserted := store.inserts[0].Rows[0]
	if inserted["DD_Type"] != "ClaimType" {
		t.Errorf("DD_Type not injected on insert: %v", inserted)
	}
	if _, present := inserted["DD_Key"]; present {
		t.Errorf("keyless row should not carry DD_Key: %v", inserted)
	}
}

func TestDropdownUpsertMapsLegacyColumnNames(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	_, err := svc.Upsert(context.Background(), "tblGrpCode", []map[string]any{
		{"PK_Number": 3, "ProgramExpandedName": "Some Program"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	row := store.merges[0].Rows[0]
	if row["Prgram Expanded Name"] != "Some Program" {
		t.Errorf("legacy column not mapped: %v", row)
	}
	if _, present := row["ProgramExpandedName"]; present {
		t.Errorf("API column leaked to database row: %v", row)
	}
}

func TestDropdownUpsertNonIdentityKeyStaysInInsert(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	_, err := svc.Upsert(context.Background(), "SAC_Contact1", []map[string]any{
		{"LANID": "jdoe", "SACName": "Jane Doe"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if store.merges[0].Exclude {
		t.Errorf("LANID is caller-assigned and must stay in the insert list")
	}
}

func TestDropdownUpsertRejectsAll(t *testing.T) {
	svc := NewDropdownService(&fakeStore{})
	_, err := svc.Upsert(context.Background(), "all", []map[string]any{{"DD_Value": "x"}})
	var ierr InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InputError", err)
	}
}

func TestDropdownDeleteRequiresKey(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	_, err := svc.Delete(context.Background(), "BranchName", []map[string]any{
		{"BranchName": "NY"},
	})
	var ierr InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InputError", err)
	}
	if !strings.Contains(ierr.Error(), "BranchNmb is required") {
		t.Errorf("message = %q", ierr.Error())
	}
}

func TestDropdownDeleteKeepsOnlyKeyColumn(t *testing.T) {
	store := &fakeStore{}
	svc := NewDropdownService(store)

	resp, err := svc.Delete(context.Background(), "ClaimType", []map[string]any{
		{"DD_Key": 5, "DD_Value": "Auto"},
	})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if resp.Message != "Deletion successful" || resp.Count != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if !reflect.DeepEqual(store.deletes[0].Rows, []map[string]any{{"DD_Key": 5}}) {
		t.Errorf("delete rows = %v", store.deletes[0].Rows)
	}
}
