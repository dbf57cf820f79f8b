package gormstore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
)

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

var timeFields = map[string]bool{
	"date":       true,
	"refundDate": true,
}

var gormOps = map[store.Op]string{
	store.OpEq:  "=",
	store.OpNe:  "<>",
	store.OpGt:  ">",
	store.OpGte: ">=",
	store.OpLt:  "<",
	store.OpLte: "<=",
}

// applyQuery chains the validated conditions onto a GORM query.
func applyQuery(tx *gorm.DB, q store.Query, allowed []string, columns map[string]string) (*gorm.DB, error) {
	if err := q.Validate(allowed); err != nil {
		return nil, err
	}

	for _, c := range q.Conds {
		col := columns[c.Field]

		if c.Op == store.OpContains {
			v, ok := c.Value.(string)
			if !ok {
				return nil, errors.ErrValidation(fmt.Sprintf("field %q expects a string value", c.Field))
			}
			tx = tx.Where(col+" LIKE ?", "%"+v+"%")
			continue
		}

		value := c.Value
		if timeFields[c.Field] {
			if str, ok := value.(string); ok {
				parsed, err := time.Parse(time.RFC3339, str)
				if err != nil {
					return nil, errors.ErrValidation(fmt.Sprintf("field %q expects an RFC 3339 time", c.Field))
				}
				value = parsed
			}
		}
		tx = tx.Where(fmt.Sprintf("%s %s ?", col, gormOps[c.Op]), value)
	}
	return tx, nil
}

// orderClause builds the ORDER BY expression for a normalized page
// request, with the primary key as a stable tiebreak.
func orderClause(page store.PageRequest, tiebreak string) string {
	col := "date"
	if page.Sort == store.SortByOrder {
		col = "order_number"
	}
	dir := "DESC"
	if page.Order == store.SortAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s, %s ASC", col, dir, tiebreak)
}
