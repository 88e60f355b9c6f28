package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sqlrest/internal/apperr"
	"github.com/roach88/sqlrest/internal/querybuild"
)

// stringList accepts a single string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected a string or a list of strings")
	}
	*l = many
	return nil
}

// readParams are the parameters of select, aggregate and count.
type readParams struct {
	Columns   stringList     `json:"columns"`
	GroupBy   stringList     `json:"groupby"`
	Aggregate stringList     `json:"aggregate"`
	Filters   map[string]any `json:"filters"`
	Page      int            `json:"page"`
	PageSize  int            `json:"page_size"`
	OrderBy   string         `json:"orderby"`
	Direction string         `json:"direction"`
}

func (p readParams) window() querybuild.Window {
	return querybuild.Window{
		Page:      p.Page,
		PageSize:  p.PageSize,
		OrderBy:   p.OrderBy,
		Direction: p.Direction,
	}
}

// mutationParams are the body of insert, update and delete.
type mutationParams struct {
	Rows    []map[string]any `json:"rows"`
	Filters map[string]any   `json:"filters"`
	Values  map[string]any   `json:"values"`
}

// bindRead reads parameters from the JSON body on POST and from the query
// string otherwise.
func bindRead(c *gin.Context) (readParams, error) {
	var p readParams
	if c.Request.Method == "POST" {
		if err := bindBody(c, &p); err != nil {
			return p, err
		}
		return p, nil
	}

	var err error
	if p.Columns, err = queryList(c, "columns"); err != nil {
		return p, err
	}
	if p.GroupBy, err = queryList(c, "groupby"); err != nil {
		return p, err
	}
	if p.Aggregate, err = queryList(c, "aggregate"); err != nil {
		return p, err
	}
	if raw := c.Query("filters"); raw != "" {
		if err := decodeJSON(strings.NewReader(raw), &p.Filters); err != nil {
			return p, apperr.NewInvalidArgument("filters must be a JSON object: %v", err)
		}
	}
	if p.Page, err = queryInt(c, "page"); err != nil {
		return p, err
	}
	if p.PageSize, err = queryInt(c, "page_size"); err != nil {
		return p, err
	}
	p.OrderBy = c.Query("orderby")
	p.Direction = c.Query("direction")
	return p, nil
}

// bindBody decodes a JSON body. An empty body leaves v unchanged.
func bindBody(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.NewInvalidArgument("invalid JSON body: %v", err)
	}
	return nil
}

// decodeJSON decodes a single JSON value, keeping numbers as json.Number so
// integers beyond float64 precision survive.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// queryList reads a list parameter given as repeated keys or as a single
// JSON array.
func queryList(c *gin.Context, key string) ([]string, error) {
	vals := c.QueryArray(key)
	if len(vals) == 1 && strings.HasPrefix(strings.TrimSpace(vals[0]), "[") {
		var list []string
		if err := decodeJSON(strings.NewReader(vals[0]), &list); err != nil {
			return nil, apperr.NewInvalidArgument("%s must be a JSON list of strings: %v", key, err)
		}
		return list, nil
	}
	return vals, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.NewInvalidArgument("%s must be an integer, got %q", key, raw)
	}
	return n, nil
}
