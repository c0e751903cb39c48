package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("Invalid JSON body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// decodeJSON reads one JSON object from the body. An empty body decodes as
// the zero value.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

// stringList decodes raw as a JSON array of strings. ok is false for any
// other JSON value, including a missing field.
func stringList(raw json.RawMessage) (out []string, ok bool) {
	if len(raw) == 0 {
		return nil, false
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// idList decodes raw as a JSON array. isArray is false when raw is not an
// array; allStrings is false when any element is not a string, since such an
// element can never name a bookmark.
func idList(raw json.RawMessage) (ids []string, isArray, allStrings bool) {
	var items []any
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || items == nil {
		return nil, false, false
	}
	ids = make([]string, 0, len(items))
	for _, it := range items {
		id, ok := it.(string)
		if !ok {
			return nil, true, false
		}
		ids = append(ids, id)
	}
	return ids, true, true
}
