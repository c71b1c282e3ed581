package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/entity"
	"github.com/looplj/forgehub/internal/server/biz"
)

type CommitHandlersParams struct {
	fx.In

	CommitService *biz.CommitService
}

// CommitHandlers expose the read surface of commits. Commit creation is
// driven by internal callers, not REST.
type CommitHandlers struct {
	CommitService *biz.CommitService
}

func NewCommitHandlers(params CommitHandlersParams) *CommitHandlers {
	return &CommitHandlers{
		CommitService: params.CommitService,
	}
}

// repoParams merges the repo path parameter into the query predicates so
// the authorization scope can key on it.
func repoParams(c *gin.Context) entity.Params {
	params := queryParams(c)
	params["repo"] = c.Param("repo")

	return params
}

func (h *CommitHandlers) List(c *gin.Context) {
	page, pageSize := pageArgs(c)

	result, err := h.CommitService.Engine.List(c.Request.Context(), repoParams(c), page, pageSize, queryOptions(c))
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CommitHandlers) Find(c *gin.Context) {
	rows, err := h.CommitService.Engine.Find(c.Request.Context(), repoParams(c), queryOptions(c))
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *CommitHandlers) Count(c *gin.Context) {
	count, err := h.CommitService.Engine.Count(c.Request.Context(), repoParams(c), entity.Options{})
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *CommitHandlers) Get(c *gin.Context) {
	opts := queryOptions(c)
	opts.Params = entity.Params{"repo": c.Param("repo")}

	rec, err := h.CommitService.Engine.Get(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}
