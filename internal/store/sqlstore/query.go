package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

// Column maps translate the query specification's JSON field names into
// relational columns, per entity.
var (
	testerColumns = map[string]string{
		"uuid": "uuid",
		"name": "name",
	}
	idMappingColumns = map[string]string{
		"id":         "id",
		"testerUuid": "tester_uuid",
	}
	purchaseColumns = map[string]string{
		"id":          "id",
		"testerUuid":  "tester_uuid",
		"date":        "date",
		"order":       "order_number",
		"description": "description",
		"amount":      "amount",
		"refunded":    "refunded",
	}
	feedbackColumns = map[string]string{
		"purchase": "purchase_id",
		"date":     "date",
		"feedback": "feedback",
	}
	publicationColumns = map[string]string{
		"purchase": "purchase_id",
		"date":     "date",
	}
	refundColumns = map[string]string{
		"purchase":      "purchase_id",
		"date":          "date",
		"refundDate":    "refund_date",
		"amount":        "amount",
		"transactionId": "transaction_id",
	}
)

// Fields that compare as timestamps; string condition values for these
// are parsed as RFC 3339 before binding.
var timeFields = map[string]bool{
	"date":       true,
	"refundDate": true,
}

var sqlOps = map[store.Op]string{
	store.OpEq:  "=",
	store.OpNe:  "<>",
	store.OpGt:  ">",
	store.OpGte: ">=",
	store.OpLt:  "<",
	store.OpLte: "<=",
}

// whereClause compiles the validated query into a WHERE fragment with ?
// placeholders. An empty query yields an empty fragment.
func whereClause(q store.Query, allowed []string, columns map[string]string) (string, []any, error) {
	if err := q.Validate(allowed); err != nil {
		return "", nil, err
	}
	if len(q.Conds) == 0 {
		return "", nil, nil
	}

	var parts []string
	var args []any
	for _, c := range q.Conds {
		col := columns[c.Field]

		if c.Op == store.OpContains {
			v, ok := c.Value.(string)
			if !ok {
				return "", nil, errors.ErrValidation(fmt.Sprintf("field %q expects a string value", c.Field))
			}
			parts = append(parts, col+" LIKE ?")
			args = append(args, "%"+v+"%")
			continue
		}

		value := c.Value
		if timeFields[c.Field] {
			if str, ok := value.(string); ok {
				parsed, err := time.Parse(time.RFC3339, str)
				if err != nil {
					return "", nil, errors.ErrValidation(fmt.Sprintf("field %q expects an RFC 3339 time", c.Field))
				}
				value = parsed
			}
		}
		parts = append(parts, col+" "+sqlOps[c.Op]+" ?")
		args = append(args, value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

// orderBy builds the ORDER BY fragment for a normalized page request,
// with the primary key as a stable tiebreak.
func orderBy(page store.PageRequest, prefix, tiebreak string) string {
	col := prefix + "date"
	if page.Sort == store.SortByOrder {
		col = prefix + "order_number"
	}
	dir := "DESC"
	if page.Order == store.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s ASC", col, dir, tiebreak)
}
