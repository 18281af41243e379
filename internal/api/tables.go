package api

import (
	"context"
	"errors"
	"io/fs"
	"path"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-legend/internal/resource"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

type SourceTableInput struct {
	Name  string `path:"name" doc:"Source file name" example:"icons.csv"`
	Limit int    `query:"limit" default:"100" minimum:"1" maximum:"10000" doc:"Maximum rows returned"`
}

// TableBody is a lookup table with blank cells removed.
type TableBody struct {
	Columns []string      `json:"columns" doc:"Header order"`
	Rows    []tabular.Row `json:"rows" doc:"Rows, blank cells omitted"`
	Total   int           `json:"total" doc:"Rows in the table"`
}

// ResourcesBody lists the auxiliary resource caches.
type ResourcesBody struct {
	Tables    []resource.Entry `json:"tables" doc:"Lookup tables"`
	Templates []resource.Entry `json:"templates" doc:"Popup and attribution templates"`
}

// GetSourceTable decodes a CSV, YAML or Parquet source as a lookup table.
func (h *APIHandler) GetSourceTable(ctx context.Context, input *SourceTableInput) (*struct{ Body TableBody }, error) {
	if h.svc.Tables == nil {
		return nil, huma.Error503ServiceUnavailable("table reader not available")
	}
	if input.Name != path.Base(input.Name) || input.Name == ".." {
		return nil, huma.Error400BadRequest("invalid source name")
	}
	t, err := h.svc.Tables.TableSync(ctx, path.Join("sources", input.Name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, huma.Error404NotFound("source not found: " + input.Name)
	}
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	body := TableBody{Columns: t.Columns, Rows: t.Rows, Total: t.Len()}
	if len(body.Rows) > input.Limit {
		body.Rows = body.Rows[:input.Limit]
	}
	if body.Rows == nil {
		body.Rows = []tabular.Row{}
	}
	return &struct{ Body TableBody }{Body: body}, nil
}

// GetResources reports the state of every requested table and template.
func (h *APIHandler) GetResources(ctx context.Context, input *struct{}) (*struct{ Body ResourcesBody }, error) {
	var body ResourcesBody
	err := h.svc.App.Do(ctx, func() error {
		body.Tables = h.svc.App.Tables()
		body.Templates = h.svc.App.Templates()
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body ResourcesBody }{Body: body}, nil
}
