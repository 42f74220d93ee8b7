package shared

// LedgerScanLockKey builds the redis key guarding the integrity scan.
func LedgerScanLockKey() string {
	return "distribusi:ledger:scan:lock"
}

