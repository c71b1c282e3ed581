package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/looplj/forgehub/internal/entity"
)

// reserved query keys consumed by the handlers themselves; everything
// else is treated as a field predicate.
var reservedQueryKeys = map[string]bool{
	"page":     true,
	"pageSize": true,
	"populate": true,
	"fields":   true,
	"sort":     true,
	"limit":    true,
	"offset":   true,
}

// queryParams collects the field predicates from the request query.
// Unknown fields are dropped by the entity layer.
func queryParams(c *gin.Context) entity.Params {
	params := entity.Params{}

	for key, values := range c.Request.URL.Query() {
		if reservedQueryKeys[key] || len(values) == 0 {
			continue
		}

		if len(values) > 1 {
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}

			params[key] = list

			continue
		}

		params[key] = values[0]
	}

	return params
}

// queryOptions reads the projection, population and ordering controls.
func queryOptions(c *gin.Context) entity.Options {
	return entity.Options{
		Populate: splitList(c.Query("populate")),
		Fields:   splitList(c.Query("fields")),
		Sort:     splitList(c.Query("sort")),
		Offset:   cast.ToInt(c.Query("offset")),
		Limit:    cast.ToInt(c.Query("limit")),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := parts[:0]

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func pageArgs(c *gin.Context) (int, int) {
	page := cast.ToInt(c.DefaultQuery("page", "1"))
	pageSize := cast.ToInt(c.DefaultQuery("pageSize", "10"))

	return page, pageSize
}
