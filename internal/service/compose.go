package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/policyops/acctd/internal/config"
)

// ComposeLink is the assembled mail deep link plus the recipient accounting
// the UI shows alongside it.
type ComposeLink struct {
	URL         string   `json:"url"`
	Recipients  []string `json:"recipients"`
	FilteredOut int      `json:"filtered_out"`
	Total       int      `json:"total"`
}

// ComposeService turns distribution rows into Outlook compose deep links.
type ComposeService struct {
	cfg config.Compose
}

func NewComposeService(cfg config.Compose) *ComposeService {
	return &ComposeService{cfg: cfg}
}

// extractRecipients pulls unique addresses from the EMailAddress column and
// counts everything dropped: duplicates and, when a domain allow-list is
// configured, foreign domains.
func (s *ComposeService) extractRecipients(entries []map[string]any) ([]string, int) {
	var recipients []string
	seen := make(map[string]struct{})
	filteredOut := 0

	for _, entry := range entries {
		email, _ := entry["EMailAddress"].(string)
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			filteredOut++
			continue
		}
		if !s.domainAllowed(email) {
			filteredOut++
			continue
		}
		seen[email] = struct{}{}
		recipients = append(recipients, email)
	}
	return recipients, filteredOut
}

func (s *ComposeService) domainAllowed(email string) bool {
	if len(s.cfg.AllowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range s.cfg.AllowedDomains {
		if domain == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// BuildLink assembles the compose URL for the given distribution entries.
// Subject and body fall back to the configured templates when blank.
func (s *ComposeService) BuildLink(entries []map[string]any, subject, body string) (ComposeLink, error) {
	if len(entries) == 0 {
		return ComposeLink{}, InputError("Provide entries to build the compose link")
	}

	recipients, filteredOut := s.extractRecipients(entries)
	total := len(entries)
	if len(recipients) == 0 {
		return ComposeLink{}, InputError("No valid email recipients found")
	}
	if s.cfg.MaxRecipients > 0 && len(recipients) > s.cfg.MaxRecipients {
		return ComposeLink{}, InputError(fmt.Sprintf("Recipient count %d exceeds the limit of %d", len(recipients), s.cfg.MaxRecipients))
	}

	if strings.TrimSpace(subject) == "" {
		subject = s.cfg.SubjectTemplate
	}
	if strings.TrimSpace(body) == "" {
		body = s.cfg.BodyTemplate
	}

	params := url.Values{}
	params.Set("to", strings.Join(recipients, ";"))
	params.Set("subject", subject)
	params.Set("body", body)

	return ComposeLink{
		URL:         s.cfg.BaseURL + "?" + params.Encode(),
		Recipients:  recipients,
		FilteredOut: filteredOut,
		Total:       total,
	}, nil
}
