package router

import (
	"net"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/httpclient"
	"github.com/policlinic/backoffice/internal/logger"
)

func shouldRetry(logger *logger.Logger, err error) bool {
	if httpErr, ok := httpclient.IsHTTPError(err); ok {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			logger.Debugw("retrying due to HTTP error",
				"status_code", httpErr.StatusCode,
				"error", httpErr,
			)
			return true
		}
		logger.Debugw("non-retryable HTTP error",
			"status_code", httpErr.StatusCode,
			"error", httpErr,
		)
		return false
	}

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		logger.Debugw("retrying due to network timeout", "error", netErr)
		return true
	}

	// business rule failures will fail the same way on every attempt
	if errors.IsBusinessRule(err) {
		return false
	}

	return true
}

// dropPermanentFailures acks messages whose handler failed with an error
// that retrying cannot fix, so they skip the retry middleware.
func dropPermanentFailures(logger *logger.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			msgs, err := h(msg)
			if err != nil && !shouldRetry(logger, err) {
				logger.Warnw("dropping message after permanent failure",
					"message_uuid", msg.UUID,
					"error", err,
				)
				return nil, nil
			}
			return msgs, err
		}
	}
}
