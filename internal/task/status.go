package task

// Status is the outcome run-tests.php records for a single test.
// Runners may emit codes outside the known set; those are kept verbatim.
type Status string

// Known statuses.
const (
	StatusPassed  Status = "PASSED"
	StatusWarned  Status = "WARNED"
	StatusFailed  Status = "FAILED"
	StatusLeaked  Status = "LEAKED"
	StatusXFailed Status = "XFAILED"
	StatusXLeaked Status = "XLEAKED"
	StatusSkipped Status = "SKIPPED"
	StatusBorked  Status = "BORKED"

	// StatusUnknown stands for a test that one side did not record at all.
	StatusUnknown Status = "UNKNOWN"
)

// Known reports whether s is one of the statuses run-tests.php documents.
func (s Status) Known() bool {
	switch s {
	case StatusPassed, StatusWarned, StatusFailed, StatusLeaked,
		StatusXFailed, StatusXLeaked, StatusSkipped, StatusBorked:
		return true
	}
	return false
}

// FailingLike reports whether a test with this status leaves an actual-output
// artifact worth comparing when both sides agree on the status.
func (s Status) FailingLike() bool {
	return s == StatusFailed || s == StatusXFailed || s == StatusLeaked
}

// Tested reports whether the test body actually ran.
func (s Status) Tested() bool {
	return s != StatusSkipped && s != StatusBorked
}
