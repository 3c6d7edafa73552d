package integration

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

func round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// sourceID derives a stable reference id so replays of the same event collide
// on the journal reference constraint.
func sourceID(tenant shared.TenantID, kind, key string) string {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d:%s", kind, tenant, key))).String()
}
