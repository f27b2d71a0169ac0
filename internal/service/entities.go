package service

import (
	"context"
	"strings"

	"github.com/policyops/acctd/internal/query"
)

// getAffinityPolicyTypes joins policy types to their primary agent. Explicit
// agent columns keep the join from shadowing the policy type's own columns.
func getAffinityPolicyTypes(ctx context.Context, store RecordStore, filters query.Filters) ([]map[string]any, error) {
	stmt := "SELECT tblAffinityPolicyType.*, tblAffinityAgents.AgentName, tblAffinityAgents.AgentCode " +
		"FROM tblAffinityPolicyType LEFT JOIN tblAffinityAgents " +
		"ON tblAffinityPolicyType.ProgramName = tblAffinityAgents.ProgramName " +
		"WHERE tblAffinityAgents.PrimaryAgt = ?"
	params := []any{"Yes"}

	for _, f := range filters {
		stmt += " AND tblAffinityPolicyType." + f.Column + " = ?"
		params = append(params, f.Value)
	}

	return store.RunRawQuery(ctx, stmt, params)
}

// getSACAccounts handles the branch filter, which arrives as a comma list
// and matches any of the named branches.
func getSACAccounts(ctx context.Context, store RecordStore, filters query.Filters) ([]map[string]any, error) {
	var branches []string
	rest := make(query.Filters, 0, len(filters))
	for _, f := range filters {
		if f.Column == "BranchName" {
			if s, ok := f.Value.(string); ok && strings.Contains(s, ",") {
				for _, b := range strings.Split(s, ",") {
					if b = strings.TrimSpace(b); b != "" {
						branches = append(branches, b)
					}
				}
				continue
			}
		}
		rest = append(rest, f)
	}

	if len(branches) == 0 {
		return store.FetchRecords(ctx, "tblAcctSpecial", filters, "")
	}

	stmt := "SELECT * FROM tblAcctSpecial WHERE BranchName IN (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(branches)), ", ") + ")"
	params := make([]any, 0, len(branches)+len(rest))
	for _, b := range branches {
		params = append(params, b)
	}
	for _, f := range rest {
		stmt += " AND " + f.Column + " = ?"
		params = append(params, f.Value)
	}

	return store.RunRawQuery(ctx, stmt, params)
}

// renameCustomerNum maps the external CustomerNum to the legacy CustNum
// column used by the SAC frequency and HCM tables.
var renameCustomerNum = map[string]string{"CustomerNum": "CustNum"}

// EntityConfigs declares every administered table. Ordering here drives
// route registration and the generated API document.
func EntityConfigs() []EntityConfig {
	return []EntityConfig{
		{
			Name:       "affinity_program",
			Route:      "/affinity/program",
			Table:      "tblAcctAffinityProgram",
			KeyColumns: []string{"ProgramName"},
			Validate:   ValidateAffinityProgram,
		},
		{
			Name:       "affinity_policy_types",
			Route:      "/affinity/policy_types",
			Table:      "tblAffinityPolicyType",
			KeyColumns: []string{"ProgramName"},
			Defaults:   map[string]any{"AddLDocs": "No", "SpecHand": "Auto Assign"},
			Validate:   ValidateAffinityPolicyType,
			Get:        getAffinityPolicyTypes,
		},
		{
			Name:       "affinity_agents",
			Route:      "/affinity/agents",
			Table:      "tblAffinityAgents",
			KeyColumns: []string{"ProgramName", "AgentCode"},
			Validate:   ValidateAffinityAgent,
		},
		{
			Name:         "affinity_claim_review_frequency",
			Route:        "/affinity/claim_review_frequency",
			Table:        "tblClaimRevFreq_AFFIN",
			KeyColumns:   []string{"ProgramName", "MthNum"},
			OrderBy:      "MthNum",
			ValidateRows: ValidateFrequencyRows,
		},
		{
			Name:         "affinity_loss_run_frequency",
			Route:        "/affinity/loss_run_frequency",
			Table:        "tblLossRunFreq_AFFIN",
			KeyColumns:   []string{"ProgramName", "MthNum"},
			OrderBy:      "MthNum",
			ValidateRows: ValidateFrequencyRows,
		},
		{
			Name:         "affinity_policy_type_distribution",
			Route:        "/affinity/policy_type_distribution",
			Table:        "tblDIST_PolicyTypeScheduler_AFF",
			KeyColumns:   []string{"ProgramName", "EMailAddress"},
			ValidateRows: ValidatePolicyTypeDistributionRows,
			AllowDelete:  true,
		},
		{
			Name:        "affinity_claim_review_distribution",
			Route:       "/affinity/claim_review_distribution",
			Table:       "tblDist_ClaimRev_AFFIN",
			KeyColumns:  []string{"ProgramName", "EMailAddress"},
			AllowDelete: true,
		},
		{
			Name:        "affinity_loss_run_distribution",
			Route:       "/affinity/loss_run_distribution",
			Table:       "tblDist_LossRun_AFFIN",
			KeyColumns:  []string{"ProgramName", "EMailAddress"},
			AllowDelete: true,
		},
		{
			Name:                  "sac_account",
			Route:                 "/sac/account",
			Table:                 "tblAcctSpecial",
			KeyColumns:            []string{"AcctSpecialKey"},
			AllowedFilters:        []string{"CustomerNum", "CustomerName", "AcctStatus", "BranchName"},
			SplitColumn:           "AcctSpecialKey",
			ExcludeKeysFromInsert: true,
			Get:                   getSACAccounts,
		},
		{
			Name:           "sac_claim_review_frequency",
			Route:          "/sac/claim_review_frequency",
			Table:          "tblClaimRevFreq_SAC",
			KeyColumns:     []string{"CustNum", "MthNum"},
			AllowedFilters: []string{"CustNum", "MthNum"},
			OrderBy:        "MthNum",
			RenameColumns:  renameCustomerNum,
			ValidateRows:   ValidateFrequencyRows,
		},
		{
			Name:           "sac_deduct_bill_frequency",
			Route:          "/sac/deduct_bill_frequency",
			Table:          "tblDeductBillFreq_SAC",
			KeyColumns:     []string{"CustNum", "MthNum"},
			AllowedFilters: []string{"CustNum", "MthNum"},
			OrderBy:        "MthNum",
			RenameColumns:  renameCustomerNum,
			ValidateRows:   ValidateFrequencyRows,
		},
		{
			Name:           "sac_loss_run_frequency",
			Route:          "/sac/loss_run_frequency",
			Table:          "tblLossRunFreq_SAC",
			KeyColumns:     []string{"CustNum", "MthNum"},
			AllowedFilters: []string{"CustNum", "MthNum"},
			OrderBy:        "MthNum",
			RenameColumns:  renameCustomerNum,
			ValidateRows:   ValidateFrequencyRows,
		},
		{
			Name:           "sac_claim_review_distribution",
			Route:          "/sac/claim_review_distribution",
			Table:          "tblDistribute_ClaimRev",
			KeyColumns:     []string{"CustomerNum", "AttnTo"},
			AllowedFilters: []string{"CustomerNum", "EMailAddress"},
			StripColumns:   []string{"PK_Number"},
			AllowDelete:    true,
		},
		{
			Name:           "sac_deduct_bill_distribution",
			Route:          "/sac/deduct_bill_distribution",
			Table:          "tblDistribute_DeductBill",
			KeyColumns:     []string{"CustomerNum", "AttnTo"},
			AllowedFilters: []string{"CustomerNum", "EMailAddress"},
			StripColumns:   []string{"PK_Number"},
			AllowDelete:    true,
		},
		{
			Name:           "sac_loss_run_distribution",
			Route:          "/sac/loss_run_distribution",
			Table:          "tblDistribute_LossRun",
			KeyColumns:     []string{"CustomerNum", "AttnTo"},
			AllowedFilters: []string{"CustomerNum", "EMailAddress"},
			StripColumns:   []string{"PK_Number"},
			AllowDelete:    true,
		},
		{
			Name:          "sac_hcm_users",
			Route:         "/sac/hcm_users",
			Table:         "tblHCMUsers",
			KeyColumns:    []string{"CustNum", "UserName"},
			RenameColumns: renameCustomerNum,
			StripColumns:  []string{"PK_Number"},
			SplitColumn:   "PK_Number",
		},
		{
			Name:                  "sac_affiliates",
			Route:                 "/sac/affiliates",
			Table:                 "tblSACAffiliates",
			KeyColumns:            []string{"PK_Number"},
			SplitColumn:           "PK_Number",
			ExcludeKeysFromInsert: true,
		},
	}
}

// Registry holds one bound service per configured entity.
type Registry struct {
	services []*EntityService
	byName   map[string]*EntityService
}

// NewRegistry binds every entity configuration to the store.
func NewRegistry(store RecordStore) *Registry {
	r := &Registry{byName: make(map[string]*EntityService)}
	for _, cfg := range EntityConfigs() {
		svc := NewEntityService(store, cfg)
		r.services = append(r.services, svc)
		r.byName[cfg.Name] = svc
	}
	return r
}

// All returns the services in declaration order.
func (r *Registry) All() []*EntityService { return r.services }

// Lookup finds a service by entity name.
func (r *Registry) Lookup(name string) (*EntityService, bool) {
	svc, ok := r.byName[name]
	return svc, ok
}
