package shared

import "fmt"

// ReportCacheVersionKey builds the redis key holding a tenant's report cache version.
func ReportCacheVersionKey(tenant TenantID) string {
	return fmt.Sprintf("ledger:tenant:%d:reports:version", tenant)
}

// ReportCacheChannel is the pub/sub channel used to broadcast cache bumps.
const ReportCacheChannel = "ledger.reports.bump"
