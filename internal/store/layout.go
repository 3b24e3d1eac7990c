package store

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"

	gojson "github.com/goccy/go-json"

	"moviemania/internal/apperr"
)

type Shape int

const (
	// ShapeArray stores documents as a JSON array of objects.
	ShapeArray Shape = iota
	// ShapeObject stores documents as a JSON object keyed by document key;
	// the key field is not repeated inside the value.
	ShapeObject
)

// Layout describes how a collection is shaped on disk and ordered.
type Layout struct {
	Shape    Shape
	KeyField string
	// Prepend puts new documents first (newest-first listing).
	Prepend bool
	File    string
}

var layouts = map[Collection]Layout{
	Movies:   {Shape: ShapeArray, KeyField: "id", Prepend: true, File: "movies.json"},
	Series:   {Shape: ShapeObject, KeyField: "id", File: "series.json"},
	Admins:   {Shape: ShapeObject, KeyField: "username", File: "admins.json"},
	Sessions: {Shape: ShapeArray, KeyField: "id", File: "sessions.json"},
}

func LayoutOf(c Collection) (Layout, error) {
	l, ok := layouts[c]
	if !ok {
		return Layout{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("unknown collection %q", c))
	}
	return l, nil
}

// Decode parses a collection file into documents in stored order. Empty
// input is the empty collection. An object-shaped collection also accepts a
// one-element array wrapping the object, as older exports produced.
func Decode(c Collection, data []byte) ([]Document, error) {
	l, err := LayoutOf(c)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	switch l.Shape {
	case ShapeArray:
		var items []gojson.RawMessage
		if err := gojson.Unmarshal(data, &items); err != nil {
			return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("parse %s", l.File))
		}
		docs := make([]Document, 0, len(items))
		for i, item := range items {
			var fields map[string]gojson.RawMessage
			if err := gojson.Unmarshal(item, &fields); err != nil {
				return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("parse %s item %d", l.File, i))
			}
			key := stringField(fields, l.KeyField)
			if key == "" {
				key = "#" + strconv.Itoa(i)
			}
			docs = append(docs, Document{Key: key, Data: []byte(item)})
		}
		return docs, nil

	default:
		obj, err := decodeObject(data)
		if err != nil {
			return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("parse %s", l.File))
		}
		docs := make([]Document, 0, len(obj))
		for _, key := range slices.Sorted(maps.Keys(obj)) {
			doc, err := Stamp(c, Document{Key: key, Data: []byte(obj[key])})
			if err != nil {
				return nil, apperr.Wrap(apperr.CorruptData, err, fmt.Sprintf("parse %s entry %q", l.File, key))
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}
}

// Encode renders documents in the collection's pretty-printed file format.
func Encode(c Collection, docs []Document) ([]byte, error) {
	l, err := LayoutOf(c)
	if err != nil {
		return nil, err
	}

	if l.Shape == ShapeArray {
		items := make([]gojson.RawMessage, 0, len(docs))
		for _, d := range docs {
			items = append(items, gojson.RawMessage(d.Data))
		}
		return gojson.MarshalIndent(items, "", "  ")
	}

	obj := make(map[string]gojson.RawMessage, len(docs))
	for _, d := range docs {
		var fields map[string]gojson.RawMessage
		if err := gojson.Unmarshal(d.Data, &fields); err != nil {
			return nil, fmt.Errorf("encode %s %q: %w", c, d.Key, err)
		}
		delete(fields, l.KeyField)
		value, err := gojson.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode %s %q: %w", c, d.Key, err)
		}
		obj[d.Key] = value
	}
	return gojson.MarshalIndent(obj, "", "  ")
}

// Stamp sets the layout's key field inside doc.Data to doc.Key.
func Stamp(c Collection, doc Document) (Document, error) {
	l, err := LayoutOf(c)
	if err != nil {
		return Document{}, err
	}
	if doc.Key == "" {
		return Document{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("%s key is required", singular(c)))
	}
	var fields map[string]gojson.RawMessage
	if err := gojson.Unmarshal(doc.Data, &fields); err != nil {
		return Document{}, apperr.Wrap(apperr.InvalidInput, err, fmt.Sprintf("%s %q is not a JSON object", singular(c), doc.Key))
	}
	if fields == nil {
		fields = make(map[string]gojson.RawMessage)
	}
	key, err := gojson.Marshal(doc.Key)
	if err != nil {
		return Document{}, err
	}
	fields[l.KeyField] = key
	data, err := gojson.Marshal(fields)
	if err != nil {
		return Document{}, err
	}
	return Document{Key: doc.Key, Data: data}, nil
}

func decodeObject(data []byte) (map[string]gojson.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var wrapped []map[string]gojson.RawMessage
		if err := gojson.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		if len(wrapped) == 0 {
			return map[string]gojson.RawMessage{}, nil
		}
		return wrapped[0], nil
	}
	var obj map[string]gojson.RawMessage
	if err := gojson.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func stringField(fields map[string]gojson.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := gojson.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
