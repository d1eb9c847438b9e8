// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/mail"
	"github.com/telekom/mailguard/pkg/recipient"
	"github.com/telekom/mailguard/pkg/system"
)

// Enqueuer accepts messages for asynchronous dispatch.
type Enqueuer interface {
	Enqueue(msg mail.Message) (string, error)
}

type EnqueueResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// MessageController serves /api/messages.
type MessageController struct {
	queue Enqueuer
	log   *zap.SugaredLogger
}

func NewMessageController(log *zap.SugaredLogger, queue Enqueuer) *MessageController {
	return &MessageController{queue: queue, log: log.Named("messages")}
}

func (mc *MessageController) BasePath() string { return "messages" }

func (mc *MessageController) Handlers() []gin.HandlerFunc { return nil }

func (mc *MessageController) Register(rg *gin.RouterGroup) error {
	rg.POST("", mc.handleSubmit)
	return nil
}

func (mc *MessageController) handleSubmit(c *gin.Context) {
	reqLog := system.GetReqLogger(c, mc.log)

	var msg mail.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if report := recipient.ValidateEnvelope(msg.Envelope()); !report.Valid {
		reqLog.Infow("Rejected message submission", "problems", report.Errors)
		RespondRejected(c, report.Errors)
		return
	}

	id, err := mc.queue.Enqueue(msg)
	switch {
	case err == nil:
	case errors.Is(err, mail.ErrNoRecipients):
		RespondRejected(c, []string{"At least one recipient is required"})
		return
	case errors.Is(err, mail.ErrQueueFull), errors.Is(err, mail.ErrQueueStopped):
		reqLog.Warnw("Mail queue unavailable", "error", err)
		RespondServiceUnavailable(c, err.Error())
		return
	default:
		RespondInternalError(c, "enqueue message", err, reqLog)
		return
	}

	reqLog.Infow("Message accepted", system.MessageFields(id, len(msg.To))...)
	c.JSON(http.StatusAccepted, EnqueueResponse{ID: id, Status: "queued"})
}
