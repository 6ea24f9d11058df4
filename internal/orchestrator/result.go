package orchestrator

// RemarkTable lists the remarks a summary was built from. IDs start at 1
// and match the "Remark N" labels in the prompt.
type RemarkTable struct {
	Headers []string
	Rows    []RemarkRow
}

// RemarkRow is one numbered remark.
type RemarkRow struct {
	ID     int
	Remark string
}

// NewRemarkTable numbers remarks from 1.
func NewRemarkTable(remarks []string) *RemarkTable {
	t := &RemarkTable{
		Headers: []string{"ID", "Remark"},
		Rows:    make([]RemarkRow, len(remarks)),
	}
	for i, r := range remarks {
		t.Rows[i] = RemarkRow{ID: i + 1, Remark: r}
	}
	return t
}

// Remarks returns the remark texts in ID order.
func (t *RemarkTable) Remarks() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Remark
	}
	return out
}

// Result is the outcome of an invocation. On a recoverable failure Summary
// holds the message and Remarks is nil.
type Result struct {
	Summary string
	Remarks *RemarkTable
}

// Snapshot is one step of a streamed invocation: the summary so far and the
// remarks it is built from.
type Snapshot struct {
	Summary string
	Remarks *RemarkTable
}
