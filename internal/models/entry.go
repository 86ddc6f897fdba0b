package models

// Entry is one immutable ledger append: a ledger-assigned identifier and
// the record it carries. Seq is the insertion position and is not part of
// the interchange format.
type Entry struct {
	ID      string     `json:"id"`
	Payload FileRecord `json:"payload"`
	Seq     int64      `json:"-"`
}

func (e Entry) Clone() Entry {
	e.Payload = e.Payload.Clone()
	return e
}

// CloneEntries deep-copies a snapshot.
func CloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
