package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one upstream item. Only the tid is interpreted; Raw holds the
// object exactly as received and is what MarshalJSON writes back.
type Record struct {
	TID uint64

	// HasTID is false when the object carries no tid field.
	HasTID bool

	Raw json.RawMessage
}

// Page is an ordered batch of records. An empty page ends pagination.
type Page []Record

// LastTID returns the tid of the last record, or 0 for an empty page.
func (p Page) LastTID() uint64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].TID
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("record is not a JSON object: %.32s", data)
	}

	var head struct {
		TID *json.Number `json:"tid"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&head); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	r.TID, r.HasTID = 0, false
	if head.TID != nil {
		tid, err := strconv.ParseUint(head.TID.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("tid %q is not a non-negative integer", head.TID.String())
		}
		r.TID, r.HasTID = tid, true
	}

	r.Raw = append(r.Raw[:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Raw) == 0 {
		return []byte(fmt.Sprintf(`{"tid":%d}`, r.TID)), nil
	}
	return r.Raw, nil
}

// decodePage parses a response body into a Page.
// Anything but a JSON array of objects is ErrMalformedPage.
func decodePage(body []byte) (Page, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, fmt.Errorf("%w: body is not a JSON array: %.64s", ErrMalformedPage, body)
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	if page == nil {
		page = Page{}
	}
	return page, nil
}
