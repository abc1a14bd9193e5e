package models

import "strings"

// Column names shared by the CSV header and the export field list.
const (
	FieldTransactionID   = "transaction_id"
	FieldName            = "name"
	FieldEmail           = "email"
	FieldAmount          = "amount"
	FieldTransactionDate = "transaction_date"
	FieldClientLocation  = "client_location"
)

// FieldSet is an ordered, duplicate-free list of column names.
type FieldSet struct {
	names []string
	index map[string]int
}

// NewFieldSet builds a FieldSet; duplicates keep their first position.
func NewFieldSet(names ...string) FieldSet {
	fs := FieldSet{index: make(map[string]int, len(names))}
	for _, n := range names {
		if _, ok := fs.index[n]; ok {
			continue
		}
		fs.index[n] = len(fs.names)
		fs.names = append(fs.names, n)
	}
	return fs
}

// TransactionFields is the vocabulary of both the CSV header and the export.
var TransactionFields = NewFieldSet(
	FieldTransactionID,
	FieldName,
	FieldEmail,
	FieldAmount,
	FieldTransactionDate,
	FieldClientLocation,
)

// Names returns a copy of the names in order.
func (fs FieldSet) Names() []string {
	return append([]string(nil), fs.names...)
}

func (fs FieldSet) Len() int { return len(fs.names) }

func (fs FieldSet) Contains(name string) bool {
	_, ok := fs.index[name]
	return ok
}

// Index returns the position of name, or -1.
func (fs FieldSet) Index(name string) int {
	if i, ok := fs.index[name]; ok {
		return i
	}
	return -1
}

// Matches reports whether header is exactly the set in order.
func (fs FieldSet) Matches(header []string) bool {
	if len(header) != len(fs.names) {
		return false
	}
	for i, h := range header {
		if h != fs.names[i] {
			return false
		}
	}
	return true
}

func (fs FieldSet) String() string {
	return strings.Join(fs.names, ", ")
}
