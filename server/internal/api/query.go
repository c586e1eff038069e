package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pspwatch/pspwatch/server/internal/compute"
	"github.com/pspwatch/pspwatch/server/internal/ingest"
)

// parseBound reads an optional RFC 3339 timestamp from the query string.
func parseBound(r *http.Request, name string) (*time.Time, *ingest.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, &ingest.FieldError{Field: name, Message: "must be an RFC 3339 timestamp"}
	}
	t = t.UTC()
	return &t, nil
}

// timeRange resolves the from/to query parameters against the default
// window. Invalid input is reported as field errors.
func (h *Handler) timeRange(r *http.Request) (compute.TimeRange, []ingest.FieldError) {
	var errs []ingest.FieldError
	from, ferr := parseBound(r, "from")
	if ferr != nil {
		errs = append(errs, *ferr)
	}
	to, terr := parseBound(r, "to")
	if terr != nil {
		errs = append(errs, *terr)
	}
	if len(errs) > 0 {
		return compute.TimeRange{}, errs
	}

	tr := h.monitor.Resolve(from, to)
	if tr.From.After(tr.To) {
		return compute.TimeRange{}, []ingest.FieldError{{
			Field:   "from",
			Message: fmt.Sprintf("must not be after to (%s)", tr.To.Format(time.RFC3339)),
		}}
	}
	return tr, nil
}
