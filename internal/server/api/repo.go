package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/forgehub/internal/entity"
	"github.com/looplj/forgehub/internal/server/biz"
)

type RepoHandlersParams struct {
	fx.In

	RepoService *biz.RepoService
}

type RepoHandlers struct {
	RepoService *biz.RepoService
}

func NewRepoHandlers(params RepoHandlersParams) *RepoHandlers {
	return &RepoHandlers{
		RepoService: params.RepoService,
	}
}

func (h *RepoHandlers) List(c *gin.Context) {
	page, pageSize := pageArgs(c)

	result, err := h.RepoService.Engine.List(c.Request.Context(), queryParams(c), page, pageSize, queryOptions(c))
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RepoHandlers) Find(c *gin.Context) {
	rows, err := h.RepoService.Engine.Find(c.Request.Context(), queryParams(c), queryOptions(c))
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *RepoHandlers) Count(c *gin.Context) {
	count, err := h.RepoService.Engine.Count(c.Request.Context(), queryParams(c), entity.Options{})
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *RepoHandlers) Create(c *gin.Context) {
	var params entity.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	created, err := h.RepoService.Engine.Create(c.Request.Context(), params)
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *RepoHandlers) Get(c *gin.Context) {
	rec, err := h.RepoService.Engine.Get(c.Request.Context(), c.Param("repo"), queryOptions(c))
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *RepoHandlers) Update(c *gin.Context) {
	var params entity.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := h.RepoService.Engine.Update(c.Request.Context(), c.Param("repo"), params, entity.Options{})
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *RepoHandlers) Remove(c *gin.Context) {
	removed, err := h.RepoService.Engine.Remove(c.Request.Context(), c.Param("repo"), entity.Options{})
	if err != nil {
		RenderError(c, err)
		return
	}

	c.JSON(http.StatusOK, removed)
}
