// SPDX-License-Identifier: AGPL-3.0-or-later
package notebook

// ExecutionOrder is the outcome of checking a notebook's execution counts.
type ExecutionOrder struct {
	OK bool `json:"ok"`
	// Cell is the 1-based index (among all cells) of the first code cell
	// that breaks the sequence. Zero when OK.
	Cell int `json:"cell,omitempty"`
	// Reason is a short human-readable description of the violation.
	Reason string `json:"reason,omitempty"`
}

// CheckExecutionOrder verifies that every code cell has an execution count
// and that the counts increase by exactly one from the first code cell to
// the last. Non-code cells are ignored. A notebook without code cells
// passes.
func CheckExecutionOrder(cells []*Cell) ExecutionOrder {
	var prev *int
	for i, c := range cells {
		if !c.IsCode() {
			continue
		}
		if c.ExecutionCount == nil {
			return ExecutionOrder{Cell: i + 1, Reason: "cell has not been executed"}
		}
		if *c.ExecutionCount < 0 {
			return ExecutionOrder{Cell: i + 1, Reason: "negative execution count"}
		}
		if prev != nil && *c.ExecutionCount != *prev+1 {
			reason := "execution count skips ahead"
			if *c.ExecutionCount <= *prev {
				reason = "execution count does not increase"
			}
			return ExecutionOrder{Cell: i + 1, Reason: reason}
		}
		prev = c.ExecutionCount
	}
	return ExecutionOrder{OK: true}
}
