// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/ratelimit"
	"github.com/telekom/mailguard/pkg/system"
)

// QuotaStore is the part of the quota guard the API exposes.
type QuotaStore interface {
	Stats() ratelimit.Stats
	ResetAll()
}

// QuotaController serves /api/quota.
type QuotaController struct {
	guard QuotaStore
	log   *zap.SugaredLogger
}

func NewQuotaController(log *zap.SugaredLogger, guard QuotaStore) *QuotaController {
	return &QuotaController{guard: guard, log: log.Named("quota")}
}

func (qc *QuotaController) BasePath() string { return "quota" }

func (qc *QuotaController) Handlers() []gin.HandlerFunc { return nil }

func (qc *QuotaController) Register(rg *gin.RouterGroup) error {
	rg.GET("/stats", qc.handleStats)
	rg.POST("/reset", qc.handleReset)
	return nil
}

func (qc *QuotaController) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, qc.guard.Stats())
}

func (qc *QuotaController) handleReset(c *gin.Context) {
	qc.guard.ResetAll()
	system.GetReqLogger(c, qc.log).Warn("All quota counters reset")
	c.Status(http.StatusNoContent)
}
