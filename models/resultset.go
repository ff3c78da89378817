package models

// ResultSet is the append-only, item_id-unique sequence of records for one run.
// It is owned by the run orchestrator and is not safe for concurrent use.
type ResultSet struct {
	records []Record
	index   map[string]int
}

func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[string]int)}
}

// Add appends rec unless a record with the same item_id is already present.
func (rs *ResultSet) Add(rec Record) bool {
	if _, dup := rs.index[rec.ItemID]; dup {
		return false
	}
	rs.index[rec.ItemID] = len(rs.records)
	rs.records = append(rs.records, rec)
	return true
}

func (rs *ResultSet) Contains(itemID string) bool {
	_, ok := rs.index[itemID]
	return ok
}

func (rs *ResultSet) Len() int { return len(rs.records) }

// Records returns a copy of the records in insertion order.
func (rs *ResultSet) Records() []Record {
	out := make([]Record, len(rs.records))
	copy(out, rs.records)
	return out
}
