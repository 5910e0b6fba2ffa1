package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Attendify/internal/report"
	"Attendify/pkg/errors"
	"Attendify/pkg/response"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// GetReport 指定范围的汇总、分布和每日序列
// GET /v1/reports?range=7d|30d|90d|all
func (h *Handler) GetReport(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	r, err := report.ParseRange(c.Query("range"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, h.reports.Build(r))
}

// ExportReport 导出 csv 或 xlsx
// GET /v1/reports/export?range=30d&format=csv|xlsx
func (h *Handler) ExportReport(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	r, err := report.ParseRange(c.Query("range"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	rep := h.reports.Build(r)

	var (
		buf         bytes.Buffer
		ext         string
		contentType string
	)
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		ext, contentType = "csv", contentTypeCSV
		err = report.WriteCSV(&buf, rep, h.reports.Location())
	case "xlsx":
		ext, contentType = "xlsx", contentTypeXLSX
		err = report.WriteXLSX(&buf, rep, h.reports.Location())
	default:
		response.Error(ctx, c, errors.Validation("format", "Format %q is not supported, use csv or xlsx", format))
		return
	}
	if err != nil {
		h.logger.Error("Failed to export report", zap.String("range", string(r)), zap.Error(err))
		response.Error(ctx, c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(r, rep.GeneratedAt, ext)))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// EmailReport 把汇总发给管理层
// POST /v1/reports/email?range=7d
func (h *Handler) EmailReport(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	r, err := report.ParseRange(c.Query("range"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	out, err := h.reports.Email(ctx, r)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, out)
}
