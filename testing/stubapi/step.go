package stubapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Step is one scripted reply.
type Step struct {
	Status  int
	Body    any
	Headers map[string]string
	Delay   time.Duration
}

// Reply builds a JSON reply step. A nil body sends no content.
func Reply(status int, body any) Step {
	return Step{Status: status, Body: body}
}

// WithHeader returns a copy of the step carrying an extra response header.
func (s Step) WithHeader(key, value string) Step {
	headers := make(map[string]string, len(s.Headers)+1)
	for k, v := range s.Headers {
		headers[k] = v
	}
	headers[key] = value
	s.Headers = headers
	return s
}

// WithRetryAfter sets a Retry-After header in whole seconds.
func (s Step) WithRetryAfter(d time.Duration) Step {
	return s.WithHeader("Retry-After", strconv.Itoa(int(d/time.Second)))
}

// WithDelay holds the reply until d elapses or the client goes away.
func (s Step) WithDelay(d time.Duration) Step {
	s.Delay = d
	return s
}

func (s Step) handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.Delay > 0 {
			select {
			case <-time.After(s.Delay):
			case <-c.Request().Context().Done():
				return nil
			}
		}
		for k, v := range s.Headers {
			c.Response().Header().Set(k, v)
		}

		status := s.Status
		if status == 0 {
			status = http.StatusOK
		}
		switch body := s.Body.(type) {
		case nil:
			return c.NoContent(status)
		case string:
			return c.Blob(status, echo.MIMEApplicationJSON, []byte(body))
		case []byte:
			return c.Blob(status, echo.MIMEApplicationJSON, body)
		default:
			return c.JSON(status, body)
		}
	}
}
