package handler

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

const maxFormBytes = 1 << 20

// formValues reads a POST body sent either as a urlencoded form or as a
// flat JSON object. JSON numbers and booleans come back as their text form.
func formValues(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	values := make(map[string]string)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid request payload: %w", err)
		}
		for k, v := range raw {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				values[k] = s
				continue
			}
			values[k] = fmt.Sprint(v)
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	return values, nil
}

func trimmed(values map[string]string, key string) string {
	return strings.TrimSpace(values[key])
}
