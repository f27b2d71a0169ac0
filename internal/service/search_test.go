package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestAffinityProgramSearchFormatsDates(t *testing.T) {
	store := &fakeStore{rawResult: []map[string]any{
		{"Program Name": "Prog", "On Board Date": "2024-01-15"},
	}}
	svc := NewSearchService(store)

	got, err := svc.AffinityPrograms(context.Background(), "ProgramName")
	if err != nil {
		t.Fatalf("AffinityPrograms: %v", err)
	}
	if got[0]["On Board Date"] != "01-15-2024" {
		t.Errorf("date not formatted: %v", got[0])
	}
	if !strings.Contains(store.raws[0].Stmt, "FROM tblAcctAffinityProgram") {
		t.Errorf("stmt = %s", store.raws[0].Stmt)
	}
}

func TestAffinityProgramSearchByProducerCode(t *testing.T) {
	store := &fakeStore{}
	svc := NewSearchService(store)

	if _, err := svc.AffinityPrograms(context.Background(), "ProducerCode"); err != nil {
		t.Fatalf("AffinityPrograms: %v", err)
	}
	stmt := store.raws[0].Stmt
	if !strings.Contains(stmt, "LEFT JOIN tblAffinityAgents") ||
		!strings.Contains(stmt, "AgentCode IS NOT NULL") {
		t.Errorf("stmt = %s", stmt)
	}
}

func TestSearchInvalidType(t *testing.T) {
	svc := NewSearchService(&fakeStore{})

	for _, call := range []func() ([]map[string]any, error){
		func() ([]map[string]any, error) { return svc.AffinityPrograms(context.Background(), "Nope") },
		func() ([]map[string]any, error) { return svc.SACAccounts(context.Background(), "Nope") },
	} {
		_, err := call()
		var ierr InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("err = %v, want InputError", err)
		}
		if ierr.Error() != "Invalid search type" {
			t.Errorf("message = %q", ierr.Error())
		}
	}
}

func TestSACAccountSearchByName(t *testing.T) {
	store := &fakeStore{}
	svc := NewSearchService(store)

	if _, err := svc.SACAccounts(context.Background(), "AccountName"); err != nil {
		t.Fatalf("SACAccounts: %v", err)
	}
	if !strings.Contains(store.raws[0].Stmt, "ORDER BY tblAcctSpecial.CustomerName") {
		t.Errorf("stmt = %s", store.raws[0].Stmt)
	}
}

func TestPolicyFiltersRequireCustomer(t *testing.T) {
	svc := NewSearchService(&fakeStore{})

	_, err := svc.PolicyStatuses(context.Background(), "")
	var ierr InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("err = %v, want InputError", err)
	}
	if ierr.Error() != "customer_num is required" {
		t.Errorf("message = %q", ierr.Error())
	}
}

func TestPolicyStatusesQueryShape(t *testing.T) {
	store := &fakeStore{}
	svc := NewSearchService(store)

	if _, err := svc.PolicyStatuses(context.Background(), "42"); err != nil {
		t.Fatalf("PolicyStatuses: %v", err)
	}
	call := store.raws[0]
	for _, want := range []string{
		"SELECT tblPolicies.PolicyStatus",
		"GROUP BY tblPolicies.PolicyStatus, tblPolicies.CustomerNum",
		"HAVING tblPolicies.CustomerNum = ?",
		"ORDER BY tblPolicies.PolicyStatus",
	} {
		if !strings.Contains(call.Stmt, want) {
			t.Errorf("query missing %q", want)
		}
	}
	if !reflect.DeepEqual(call.Params, []any{"42"}) {
		t.Errorf("params = %v", call.Params)
	}
}

func TestPolicyNumbersQueryShape(t *testing.T) {
	store := &fakeStore{}
	svc := NewSearchService(store)

	if _, err := svc.PolicyNumbers(context.Background(), "42"); err != nil {
		t.Fatalf("PolicyNumbers: %v", err)
	}
	if !strings.Contains(store.raws[0].Stmt, "SELECT tblPolicies.PolicyNum") {
		t.Errorf("stmt = %s", store.raws[0].Stmt)
	}
}
