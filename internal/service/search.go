package service

import (
	"context"
	"strings"

	"github.com/policyops/acctd/internal/record"
)

// Search queries return picker-shaped rows with display column aliases, so
// the UI can render them without a field map.
var affinitySearchQueries = map[string]string{
	"ProgramName": "SELECT tblAcctAffinityProgram.ProgramName AS [Program Name], tblAcctAffinityProgram.OnBoardDt AS [On Board Date] " +
		"FROM tblAcctAffinityProgram ORDER BY tblAcctAffinityProgram.ProgramName",
	"ProducerCode": "SELECT tblAffinityAgents.AgentCode AS [Agent Code], tblAffinityAgents.AgentName AS [Agent Name], " +
		"tblAcctAffinityProgram.ProgramName AS [Program Name], tblAcctAffinityProgram.OnBoardDt AS [On Board Date] " +
		"FROM tblAcctAffinityProgram LEFT JOIN tblAffinityAgents ON tblAcctAffinityProgram.ProgramName = tblAffinityAgents.ProgramName " +
		"WHERE tblAffinityAgents.AgentCode IS NOT NULL ORDER BY tblAcctAffinityProgram.ProgramName",
}

var sacAccountSearchQueries = map[string]string{
	"AccountName": "SELECT tblAcctSpecial.CustomerName AS [Account Name], tblAcctSpecial.CustomerNum AS [Customer Number], " +
		"tblAcctSpecial.BranchName AS [Branch], tblAcctSpecial.OnBoardDt AS [On Board Date] " +
		"FROM tblAcctSpecial ORDER BY tblAcctSpecial.CustomerName",
	"CustomerNum": "SELECT tblAcctSpecial.CustomerNum AS [Customer Number], tblAcctSpecial.CustomerName AS [Account Name], " +
		"tblAcctSpecial.BranchName AS [Branch], tblAcctSpecial.OnBoardDt AS [On Board Date] " +
		"FROM tblAcctSpecial ORDER BY tblAcctSpecial.CustomerNum",
}

// SearchService runs the canned keyword search and filter lookups.
type SearchService struct {
	store RecordStore
}

func NewSearchService(store RecordStore) *SearchService {
	return &SearchService{store: store}
}

func (s *SearchService) runSearch(ctx context.Context, queries map[string]string, searchBy string) ([]map[string]any, error) {
	stmt, ok := queries[searchBy]
	if !ok {
		return nil, InputError("Invalid search type")
	}
	rows, err := s.store.RunRawQuery(ctx, stmt, nil)
	if err != nil {
		return nil, err
	}
	return record.FormatRecords(rows, nil), nil
}

// AffinityPrograms searches programs by name or producer code.
func (s *SearchService) AffinityPrograms(ctx context.Context, searchBy string) ([]map[string]any, error) {
	return s.runSearch(ctx, affinitySearchQueries, searchBy)
}

// SACAccounts searches special accounts by name or customer number.
func (s *SearchService) SACAccounts(ctx context.Context, searchBy string) ([]map[string]any, error) {
	return s.runSearch(ctx, sacAccountSearchQueries, searchBy)
}

// PolicyStatuses lists the distinct policy statuses of one customer.
func (s *SearchService) PolicyStatuses(ctx context.Context, customerNum string) ([]map[string]any, error) {
	return s.policyFilter(ctx, customerNum, "PolicyStatus")
}

// PolicyNumbers lists the distinct policy numbers of one customer.
func (s *SearchService) PolicyNumbers(ctx context.Context, customerNum string) ([]map[string]any, error) {
	return s.policyFilter(ctx, customerNum, "PolicyNum")
}

func (s *SearchService) policyFilter(ctx context.Context, customerNum, column string) ([]map[string]any, error) {
	if strings.TrimSpace(customerNum) == "" {
		return nil, InputError("customer_num is required")
	}
	stmt := "SELECT tblPolicies." + column + " FROM tblPolicies " +
		"GROUP BY tblPolicies." + column + ", tblPolicies.CustomerNum " +
		"HAVING tblPolicies.CustomerNum = ? ORDER BY tblPolicies." + column
	return s.store.RunRawQuery(ctx, stmt, []any{customerNum})
}
