package model

// Document is an opaque JSON object held in the physical store. The gateway
// never inspects its shape beyond the fields it is asked to manipulate; the
// catalog never stores document content.
type Document map[string]interface{}

// DocumentIDField is the physical store's primary key field. It is assigned
// by the store and surfaced to clients as an opaque identifier.
const DocumentIDField = "_id"

// Filter is an equality map parsed from a caller-supplied JSON string. Each
// entry matches documents whose field equals the given value.
type Filter map[string]interface{}

// ID returns the store-assigned primary key, if present.
func (d Document) ID() (string, bool) {
	v, ok := d[DocumentIDField]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// DocumentPage is one page of documents plus the request-time total for the
// filter, computed fresh on every call since the store is concurrently
// mutated.
type DocumentPage struct {
	Data       []Document `json:"data"`
	Pagination Pagination `json:"pagination"`
}
