package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/pkg"
)

// Handler serves the REST API of one catalog resource. C is the create body
// and U the partial update body.
type Handler[T any, C Input[T], U Patch] struct {
	svc *Service[T]
}

// NewHandler creates a Handler backed by svc.
func NewHandler[T any, C Input[T], U Patch](svc *Service[T]) *Handler[T, C, U] {
	return &Handler[T, C, U]{svc: svc}
}

// Register mounts the resource routes on g.
func (h *Handler[T, C, U]) Register(g *gin.RouterGroup) {
	g.GET("", h.List)
	g.GET("/by-ids", h.ListByIDs)
	g.GET("/export", h.Export)
	g.GET("/uuid/:uuid", h.GetByUUID)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.POST("/batch", h.CreateMany)
	g.POST("/upsert", h.Upsert)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.DELETE("/:id/force", h.ForceDelete)
	g.POST("/:id/restore", h.Restore)
	g.PATCH("/:id/active", h.SetActive)
	g.POST("/bulk/delete", h.BulkDelete)
	g.POST("/bulk/force-delete", h.BulkForceDelete)
	g.POST("/bulk/restore", h.BulkRestore)
	g.POST("/bulk/active", h.BulkSetActive)
}

// List handles GET /.
func (h *Handler[T, C, U]) List(c *gin.Context) {
	req := pkg.ParseListRequest(c)

	result, err := h.svc.List(c.Request.Context(), req.Query, req.With, req.WithCount)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// ListByIDs handles GET /by-ids?ids=3,1,2.
func (h *Handler[T, C, U]) ListByIDs(c *gin.Context) {
	ids, err := parseIDList(pkg.SplitList(c.QueryArray("ids")))
	if err != nil {
		pkg.Error(c, domain.Invalid("%s", err))
		return
	}
	req := pkg.ParseListRequest(c)

	result, err := h.svc.ListByIDsDesc(c.Request.Context(), ids, req.Query.PerPage(), req.With, req.WithCount)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Export handles GET /export?format=csv&columns=id,name&filename=x. Listing
// parameters other than paging select the exported rows.
func (h *Handler[T, C, U]) Export(c *gin.Context) {
	req := pkg.ParseListRequest(c)

	stream, err := h.svc.Export(c.Request.Context(), req.Query,
		c.DefaultQuery("format", "csv"), pkg.SplitList(c.QueryArray("columns")), c.Query("filename"))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	for k, v := range stream.Headers() {
		c.Header(k, v)
	}
	c.Status(http.StatusOK)
	if _, err := stream.Write(c.Writer); err != nil {
		// Headers are already sent; the failure is logged by the stream.
		_ = c.Error(err)
	}
}

// Get handles GET /:id.
func (h *Handler[T, C, U]) Get(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	entity, err := h.svc.GetOrFailByID(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, h.svc.ToRow(entity))
}

// GetByUUID handles GET /uuid/:uuid.
func (h *Handler[T, C, U]) GetByUUID(c *gin.Context) {
	entity, err := h.svc.GetOrFailByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, h.svc.ToRow(entity))
}

// Create handles POST /.
func (h *Handler[T, C, U]) Create(c *gin.Context) {
	var req C
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	entity, err := h.svc.Create(c.Request.Context(), req.Entity())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, h.svc.ToRow(entity))
}

// CreateMany handles POST /batch.
func (h *Handler[T, C, U]) CreateMany(c *gin.Context) {
	var req BatchRequest[C]
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	entities, err := h.svc.CreateMany(c.Request.Context(), entities[T](req.Items))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	rows := make([]domain.Row, len(entities))
	for i, e := range entities {
		rows[i] = h.svc.ToRow(e)
	}
	pkg.Created(c, rows)
}

// Upsert handles POST /upsert.
func (h *Handler[T, C, U]) Upsert(c *gin.Context) {
	var req UpsertRequest[C]
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	n, err := h.svc.Upsert(c.Request.Context(), entities[T](req.Rows), req.UniqueBy, req.Update)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, BulkResult{Affected: n})
}

// Update handles PUT /:id. Only the fields present in the body change.
func (h *Handler[T, C, U]) Update(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req U
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	entity, err := h.svc.Update(c.Request.Context(), id, req.Attributes())
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, h.svc.ToRow(entity))
}

// Delete handles DELETE /:id.
func (h *Handler[T, C, U]) Delete(c *gin.Context) {
	h.remove(c, h.svc.Delete)
}

// ForceDelete handles DELETE /:id/force.
func (h *Handler[T, C, U]) ForceDelete(c *gin.Context) {
	h.remove(c, h.svc.ForceDelete)
}

func (h *Handler[T, C, U]) remove(c *gin.Context, fn func(ctx context.Context, id uint) (bool, error)) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	found, err := fn(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	if !found {
		pkg.Error(c, domain.ErrNotFound)
		return
	}

	pkg.Success(c, nil)
}

// Restore handles POST /:id/restore. Restoring a row that is not trashed is
// not an error; the response reports whether anything changed.
func (h *Handler[T, C, U]) Restore(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}

	restored, err := h.svc.Restore(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, gin.H{"restored": restored})
}

// SetActive handles PATCH /:id/active.
func (h *Handler[T, C, U]) SetActive(c *gin.Context) {
	id, ok := bindID(c)
	if !ok {
		return
	}
	var req ActiveRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	entity, err := h.svc.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, h.svc.ToRow(entity))
}

// BulkDelete handles POST /bulk/delete.
func (h *Handler[T, C, U]) BulkDelete(c *gin.Context) {
	h.bulk(c, h.svc.BulkDeleteByIDs, h.svc.BulkDeleteByUUIDs)
}

// BulkForceDelete handles POST /bulk/force-delete.
func (h *Handler[T, C, U]) BulkForceDelete(c *gin.Context) {
	h.bulk(c, h.svc.BulkForceDeleteByIDs, h.svc.BulkForceDeleteByUUIDs)
}

// BulkRestore handles POST /bulk/restore.
func (h *Handler[T, C, U]) BulkRestore(c *gin.Context) {
	h.bulk(c, h.svc.BulkRestoreByIDs, h.svc.BulkRestoreByUUIDs)
}

func (h *Handler[T, C, U]) bulk(c *gin.Context,
	byIDs func(ctx context.Context, ids []uint) (int64, error),
	byUUIDs func(ctx context.Context, uuids []string) (int64, error),
) {
	var req BulkRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	var affected int64
	err := h.svc.Transaction(ctx, func(ctx context.Context) error {
		n, err := byIDs(ctx, req.IDs)
		if err != nil {
			return err
		}
		m, err := byUUIDs(ctx, req.UUIDs)
		if err != nil {
			return err
		}
		affected = n + m
		return nil
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, BulkResult{Affected: affected})
}

// BulkSetActive handles POST /bulk/active. The activation guard is not
// consulted; the change is one UPDATE statement.
func (h *Handler[T, C, U]) BulkSetActive(c *gin.Context) {
	var req BulkActiveRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()

	var affected int64
	err := h.svc.Transaction(ctx, func(ctx context.Context) error {
		n, err := h.svc.BulkSetActiveByIDs(ctx, req.IDs, *req.Active)
		if err != nil {
			return err
		}
		m, err := h.svc.BulkSetActiveByUUIDs(ctx, req.UUIDs, *req.Active)
		if err != nil {
			return err
		}
		affected = n + m
		return nil
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, BulkResult{Affected: affected})
}

func entities[T any, C Input[T]](inputs []C) []*T {
	out := make([]*T, len(inputs))
	for i, in := range inputs {
		out[i] = in.Entity()
	}
	return out
}

// bindID parses the :id path parameter, answering 400 when it is invalid.
func bindID(c *gin.Context) (uint, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		pkg.Error(c, domain.Invalid("%s", err))
		return 0, false
	}
	return id, true
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return uint(id), nil
}

func parseIDList(values []string) ([]uint, error) {
	ids := make([]uint, 0, len(values))
	for _, v := range values {
		id, err := parseID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
