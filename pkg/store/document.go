package store

import (
	"bytes"
	stdjson "encoding/json"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultIndent is the indentation documents are written with.
const DefaultIndent = "    "

// Document holds the records of one file in the order they were added.
type Document struct {
	ids     []string
	records map[string]stdjson.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		records: map[string]stdjson.RawMessage{},
	}
}

// ParseDocument decodes a JSON object keeping the order of its keys.
func ParseDocument(data []byte) (*Document, error) {
	if !stdjson.Valid(data) {
		return nil, errors.Wrap(ErrSerialization, "invalid JSON")
	}

	iter := jsoniter.ParseBytes(json, data)
	if next := iter.WhatIsNext(); next != jsoniter.ObjectValue {
		return nil, errors.Wrap(ErrSerialization, "document is not a JSON object")
	}

	doc := NewDocument()
	var setErr error
	iter.ReadObjectCB(func(it *jsoniter.Iterator, id string) bool {
		raw := it.SkipAndReturnBytes()
		if it.Error != nil {
			return false
		}
		if setErr = doc.Set(id, raw); setErr != nil {
			return false
		}
		return true
	})
	if setErr != nil {
		return nil, setErr
	}
	if iter.Error != nil {
		return nil, errors.Wrap(ErrSerialization, iter.Error.Error())
	}
	return doc, nil
}

// Len returns the number of records.
func (d *Document) Len() int {
	return len(d.ids)
}

// Has reports whether id is present.
func (d *Document) Has(id string) bool {
	_, ok := d.records[id]
	return ok
}

// Get returns the value stored for id.
func (d *Document) Get(id string) (stdjson.RawMessage, bool) {
	v, ok := d.records[id]
	if !ok {
		return nil, false
	}
	return append(stdjson.RawMessage(nil), v...), true
}

// Set stores value for id. New ids are appended, existing ids keep their position.
func (d *Document) Set(id string, value []byte) error {
	var buf bytes.Buffer
	if err := stdjson.Compact(&buf, value); err != nil {
		return errors.Wrapf(ErrSerialization, "record %q: %s", id, err)
	}
	if _, ok := d.records[id]; !ok {
		d.ids = append(d.ids, id)
	}
	d.records[id] = buf.Bytes()
	return nil
}

// Delete removes id and reports whether it was present.
func (d *Document) Delete(id string) bool {
	if _, ok := d.records[id]; !ok {
		return false
	}
	delete(d.records, id)
	for i, v := range d.ids {
		if v == id {
			d.ids = append(d.ids[:i], d.ids[i+1:]...)
			break
		}
	}
	return true
}

// IDs returns the record ids in document order.
func (d *Document) IDs() []string {
	return append([]string{}, d.ids...)
}

// Marshal encodes the document as an indented JSON object followed by a newline.
func (d *Document) Marshal(indent string) ([]byte, error) {
	compact, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := stdjson.Indent(&out, compact, "", indent); err != nil {
		return nil, errors.Wrap(ErrSerialization, err.Error())
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// MarshalJSON implements json.Marshaler with compact output.
func (d *Document) MarshalJSON() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, id := range d.ids {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, errors.Wrapf(ErrSerialization, "record id %q: %s", id, err)
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(d.records[id])
	}
	compact.WriteByte('}')
	return compact.Bytes(), nil
}
