package tracker

import (
	"strings"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

// forbiddenJQLTokens rejects destructive or script-invocation keywords
// from reaching the upstream search endpoint, per §4.C.
var forbiddenJQLTokens = []string{
	"delete", "drop", "truncate", "update ", "insert ",
	"javascript:", "<script", "eval(", "function(",
}

// ValidateJQL rejects JQL strings containing forbidden tokens. It is a
// defense against the JQL endpoint being misused as a scripting surface,
// not a full JQL parser.
func ValidateJQL(jql string) error {
	lower := strings.ToLower(jql)
	for _, tok := range forbiddenJQLTokens {
		if strings.Contains(lower, tok) {
			return svcerrors.New(svcerrors.KindValidation, nil).
				WithMessage("jql contains a forbidden token").
				WithDetails("token", tok)
		}
	}
	return nil
}
