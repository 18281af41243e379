package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds RFC 8288 Link header values keyed by operation path.
type Links struct {
	byPath map[string][]string
}

// AutoLinks walks the OpenAPI document and derives hypermedia links.
// Call after every route is registered. Paths tagged editor (Datastar SSE
// endpoints) are skipped.
func AutoLinks(api huma.API, entry string) *Links {
	oapi := api.OpenAPI()
	l := &Links{byPath: map[string][]string{}}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(primaryTags(pi), "editor") {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	// Item -> parent collection.
	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
		}
	}

	// Collection -> item template.
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
	}

	// Entry point -> every collection plus service discovery rels.
	for _, coll := range collections {
		if coll == entry {
			continue
		}
		l.add(entry, coll, lastSegment(coll))
		l.add(coll, entry, "up")
	}
	l.add(entry, "/openapi.json", "service-desc")
	l.add(entry, "/docs", "service-doc")

	// describedby: the JSON Schema of each GET response.
	for _, p := range append(slices.Clone(collections), items...) {
		if ref := responseSchemaRef(oapi.Paths[p]); ref != "" {
			l.add(p, "/openapi.json#/components/schemas/"+ref, "describedby")
		}
	}
	return l
}

// For returns the links of an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	return l.byPath[opPath]
}

// Transformer returns a Huma Transformer that injects the derived links,
// a self link on item endpoints and the state-dependent actions of the
// response body.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if slices.Contains(l.byPath[from], val) {
		return
	}
	l.byPath[from] = append(l.byPath[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

func responseSchemaRef(pi *huma.PathItem) string {
	if pi == nil || pi.Get == nil || pi.Get.Responses == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				parts := strings.Split(mt.Schema.Ref, "/")
				return parts[len(parts)-1]
			}
		}
	}
	return ""
}
