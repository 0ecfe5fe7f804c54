package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudylake/tenantapi/internal/apperror"
	"github.com/cloudylake/tenantapi/internal/domain"
)

// reservedQueryParams are interpreted by the API itself and never
// forwarded as field filters.
var reservedQueryParams = map[string]bool{
	"page":     true,
	"sort":     true,
	"limit":    true,
	"fields":   true,
	"tenantId": true,
}

// ParseListOptions reads the collection query parameters. Every other
// query parameter becomes an equality filter candidate; the repository
// whitelist decides which ones apply.
func ParseListOptions(query url.Values) domain.ListOptions {
	opts := domain.ListOptions{
		Sort:    query.Get("sort"),
		Filters: map[string]string{},
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		opts.Limit = limit
	}
	for key, values := range query {
		if reservedQueryParams[key] || len(values) == 0 {
			continue
		}
		opts.Filters[key] = values[0]
	}
	return opts
}

// SelectFields prunes a JSON-marshalable value to the requested fields.
// An empty expression returns the value untouched.
func SelectFields(value interface{}, fieldsExpr string) interface{} {
	fieldsExpr = strings.TrimSpace(fieldsExpr)
	if fieldsExpr == "" {
		return value
	}

	wanted := map[string]bool{}
	for _, f := range strings.Split(fieldsExpr, ",") {
		if f = strings.TrimSpace(f); f != "" {
			wanted[f] = true
		}
	}
	if len(wanted) == 0 {
		return value
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}

	prune := func(obj map[string]interface{}) map[string]interface{} {
		out := map[string]interface{}{}
		for k, v := range obj {
			if wanted[k] {
				out[k] = v
			}
		}
		return out
	}

	var asObject map[string]interface{}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return prune(asObject)
	}

	var asList []map[string]interface{}
	if err := json.Unmarshal(raw, &asList); err == nil {
		out := make([]map[string]interface{}, 0, len(asList))
		for _, obj := range asList {
			out = append(out, prune(obj))
		}
		return out
	}
	return value
}

// decodeJSON parses a request body into dst, rejecting malformed input
// with a validation error
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperror.Validation("Request body required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("Invalid request body")
	}
	return nil
}
