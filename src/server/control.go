package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"

	"gold-monitor/src/helpers"
	"gold-monitor/src/security"
	"gold-monitor/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Privileged config mutation: GET /aturTS/:value?key=<secret>
//
// Gated three ways, independent of the request rate limiter: the shared
// secret (constant-time compare), a cooldown between successful calls, and
// bounds checking on the value.
// -----------------------------------------------------------------------------

type controlResponse struct {
	Status     string `json:"status"`
	LimitBulan int64  `json:"limit_bulan"`
}

// -----------------------------------------------------------------------------

func (s *Server) setLimit(c *gin.Context) {
	ip := security.ClientIP(c.Request)

	if s.guard.IsBlocked(ip) {
		c.String(http.StatusTooManyRequests, "IP diblokir sementara")
		return
	}

	key := c.Query("key")
	if key == "" {
		s.guard.RecordFailedAttempt(ip, utils.WeightMissingKey)
		c.String(http.StatusBadRequest, "Parameter key diperlukan")
		return
	}

	secret := s.Config.Security.AdminSecret
	if subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
		s.guard.RecordFailedAttempt(ip, utils.WeightAuthFailure)
		c.String(http.StatusForbidden, "Akses ditolak")
		return
	}

	value, err := strconv.ParseInt(c.Param("value"), 10, 64)
	if err != nil {
		s.guard.RecordFailedAttempt(ip, utils.WeightAuthFailure)
		c.String(http.StatusBadRequest, "Nilai harus angka")
		return
	}

	// Cooldown applies only to valid-key requests and leaves no penalty
	now := s.clock.Now().Unix()
	if now-s.lastControlOk.Load() < utils.ControlCooldownSecs {
		c.String(http.StatusTooManyRequests, "Terlalu cepat")
		return
	}

	if value < utils.MinLimit || value > utils.MaxLimit {
		s.Logger.Info("Rejected limit change from %s: %v", ip,
			helpers.NewValidationError(fmt.Sprintf("value %d out of range", value)))
		c.String(http.StatusBadRequest, fmt.Sprintf("Nilai harus %d-%d", utils.MinLimit, utils.MaxLimit))
		return
	}

	s.state.SetLimit(value)
	s.lastControlOk.Store(now)

	// Push the fresh document instead of waiting for the next poll or TTL
	s.state.PublishSnapshot()

	s.Logger.Info("Limit changed to %d by %s", value, ip)
	c.JSON(http.StatusOK, controlResponse{Status: "ok", LimitBulan: value})
}
