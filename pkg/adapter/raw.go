package adapter

// Raw marks a literal SQL fragment that must bypass identifier quoting and
// parameter binding, e.g. Raw("NOW()") or Raw("hits + 1"). Quoting and
// builder logic branch on this type: Raw values are embedded verbatim,
// everything else is bound through a placeholder.
//
// Two Raw values are equal when their wrapped text is equal.
type Raw string

// String returns the wrapped SQL fragment.
func (r Raw) String() string {
	return string(r)
}
