// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/recipient"
	"github.com/telekom/mailguard/pkg/system"
)

type ValidateRequest struct {
	Recipients []string `json:"recipients"`
}

// ValidateResponse combines the batch verdict with the normalized list a
// dispatch would actually use.
type ValidateResponse struct {
	Valid      bool                  `json:"valid"`
	Accepted   []string              `json:"accepted"`
	Rejected   []recipient.Rejection `json:"rejected"`
	Normalized []string              `json:"normalized"`
	Removed    []string              `json:"removed"`
}

// RecipientController serves /api/recipients.
type RecipientController struct {
	validator *recipient.Validator
	log       *zap.SugaredLogger
}

func NewRecipientController(log *zap.SugaredLogger, v *recipient.Validator) *RecipientController {
	return &RecipientController{validator: v, log: log.Named("recipients")}
}

func (rc *RecipientController) BasePath() string { return "recipients" }

func (rc *RecipientController) Handlers() []gin.HandlerFunc { return nil }

func (rc *RecipientController) Register(rg *gin.RouterGroup) error {
	rg.POST("/validate", rc.handleValidate)
	return nil
}

func (rc *RecipientController) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	batch := rc.validator.ValidateBatch(req.Recipients)
	normalized, removed := recipient.NormalizeRecipients(req.Recipients)
	system.GetReqLogger(c, rc.log).Debugw("Validated recipients",
		"count", len(req.Recipients),
		"valid", batch.Valid,
		"rejected", len(batch.Rejected))

	c.JSON(http.StatusOK, ValidateResponse{
		Valid:      batch.Valid,
		Accepted:   batch.Accepted,
		Rejected:   batch.Rejected,
		Normalized: normalized,
		Removed:    removed,
	})
}
