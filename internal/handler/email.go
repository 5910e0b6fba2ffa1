package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/internal/model"
	"Attendify/pkg/response"
)

type EmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmail 经远端发信，失败时返回 mailto 链接并写入本地发件箱
// POST /v1/emails
func (h *Handler) SendEmail(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	var req EmailRequest
	if !bind(ctx, c, &req) {
		return
	}
	out, err := h.actions.SendEmail(ctx, req.To, req.Subject, req.Body, model.MailOriginFallback)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, out)
}

// EmailLogs 远端发信记录
// GET /v1/emails/logs
func (h *Handler) EmailLogs(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	logs, err := h.actions.EmailLogs(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	if logs == nil {
		logs = []model.EmailLog{}
	}
	response.Success(ctx, c, logs)
}

// ListOutbox 本地发件箱，?status=pending|processing|success|failed
// GET /v1/emails/outbox
func (h *Handler) ListOutbox(ctx context.Context, c *app.RequestContext) {
	if !h.requireAuth(ctx, c) {
		return
	}
	if h.deliveries == nil {
		response.Success(ctx, c, []model.MailDelivery{})
		return
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	items, err := h.deliveries.List(ctx, model.MailDeliveryStatus(c.Query("status")), limit, offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.SuccessWithMeta(ctx, c, items, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
		"count":  len(items),
	})
}
