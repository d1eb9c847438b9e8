/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError is the error body of every non-2xx response.
type APIError struct {
	Error    string   `json:"error"`
	Code     string   `json:"code,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

// RespondBadRequest sends a 400 for malformed requests.
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondRejected sends a 400 listing every problem found with a message.
func RespondRejected(c *gin.Context, problems []string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error:    "message rejected",
		Code:     "REJECTED",
		Problems: problems,
	})
}

// RespondServiceUnavailable sends a 503 when a dependency cannot take work.
func RespondServiceUnavailable(c *gin.Context, reason string) {
	c.JSON(http.StatusServiceUnavailable, APIError{
		Error: reason,
		Code:  "SERVICE_UNAVAILABLE",
	})
}

// RespondInternalError logs err and sends a sanitized 500.
func RespondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw(fmt.Sprintf("Failed to %s", operation), "error", err)
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: fmt.Sprintf("failed to %s", operation),
		Code:  "INTERNAL_ERROR",
	})
}
