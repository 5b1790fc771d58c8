package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/answergrid/answergrid/internal/core/domain"
	"github.com/answergrid/answergrid/internal/logger"
)

const (
	signatureHeader = "X-Webhook-Signature"
	timestampHeader = "X-Webhook-Timestamp"

	// maxTimestampSkew bounds how far a delivery's timestamp may drift
	// from server time in either direction.
	maxTimestampSkew = 5 * time.Minute
)

// handleWebhook verifies and reconciles one source delivery. Verification
// fails closed: nothing is read from the payload before the signature
// checks out.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, domain.NewFault(domain.FaultInvalidInput, "reading request body", err))
		return
	}

	if s.webhookSecret != "" {
		if err := verifySignature(s.webhookSecret, c.GetHeader(timestampHeader),
			c.GetHeader(signatureHeader), body, time.Now()); err != nil {
			writeError(c, err)
			return
		}
	} else {
		logger.Warn("accepting unsigned webhook delivery from %s", c.ClientIP())
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(c, domain.NewFault(domain.FaultInvalidInput, "decoding webhook payload", err))
		return
	}

	outcome, err := s.syncOrch.HandleWebhook(c.Request.Context(), event)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome.String()})
}

// handleSyncStatus reports the reconciliation progress of one
// (tenant, source kind) unit. An idle unit reports zero counters rather
// than an error.
func (s *Server) handleSyncStatus(c *gin.Context) {
	tenant := c.Query("tenant")
	kind := domain.SourceKind(c.Query("kind"))
	if tenant == "" || !kind.IsValid() {
		writeError(c, domain.NewFault(domain.FaultInvalidInput,
			"tenant and a valid kind are required", domain.ErrInvalidInput))
		return
	}

	status, err := s.syncOrch.Status(c.Request.Context(), domain.TenantID(tenant), kind)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":          status.Tenant,
		"source_kind":     status.SourceKind,
		"running":         status.Running,
		"items_processed": status.ItemsProcessed,
		"error_count":     status.ErrorCount,
	})
}

// verifySignature checks the HMAC-SHA256 signature over
// timestamp + "." + body using a constant-time comparison.
func verifySignature(secret, timestamp, signature string, body []byte, now time.Time) error {
	if timestamp == "" || signature == "" {
		return domain.NewFault(domain.FaultInvalidSignature,
			"missing signature headers", domain.ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.NewFault(domain.FaultInvalidSignature,
			"malformed timestamp", domain.ErrInvalidSignature)
	}

	sent := time.Unix(unix, 0)
	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > maxTimestampSkew {
		return domain.NewFault(domain.FaultInvalidSignature,
			"timestamp outside accepted window", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return domain.NewFault(domain.FaultInvalidSignature,
			"signature mismatch", domain.ErrInvalidSignature)
	}
	return nil
}
