package shared

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ListFilter narrows ledger listings and reports.
type ListFilter struct {
	OutletID int64
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// FromParam returns the lower bound as a nullable timestamp parameter.
func (f ListFilter) FromParam() pgtype.Timestamp {
	return pgtype.Timestamp{Time: f.From, Valid: !f.From.IsZero()}
}

// ToParam returns the upper bound as a nullable timestamp parameter.
func (f ListFilter) ToParam() pgtype.Timestamp {
	return pgtype.Timestamp{Time: f.To, Valid: !f.To.IsZero()}
}

// LimitOrDefault caps the page size.
func (f ListFilter) LimitOrDefault() int {
	if f.Limit <= 0 {
		return 200
	}
	return f.Limit
}
