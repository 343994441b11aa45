package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(name string) Checker {
	return NewFuncChecker(name, func(context.Context) error { return nil })
}

func failCheck(name string, err error) Checker {
	return NewFuncChecker(name, func(context.Context) error { return err })
}

func TestCheckerRegistry(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{name: "no checkers", want: StatusHealthy},
		{name: "all healthy", checkers: []Checker{okCheck("a"), okCheck("b")}, want: StatusHealthy},
		{name: "degraded", checkers: []Checker{okCheck("a"), failCheck("b", Degraded(errors.New("slow")))}, want: StatusDegraded},
		{name: "unhealthy wins", checkers: []Checker{failCheck("a", errors.New("down")), failCheck("b", Degraded(errors.New("slow")))}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.checkers {
				r.Register(c)
			}
			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.checkers))
		})
	}
}

func TestDegradedNil(t *testing.T) {
	assert.NoError(t, Degraded(nil))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		checker    Checker
		wantStatus int
	}{
		{name: "healthy", checker: okCheck("redis"), wantStatus: http.StatusOK},
		{name: "degraded still 200", checker: failCheck("binding", Degraded(errors.New("unavailable"))), wantStatus: http.StatusOK},
		{name: "unhealthy", checker: failCheck("redis", errors.New("ping failed")), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			r.Register(tt.checker)

			router := gin.New()
			router.GET("/health", Handler(r))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			var h Health
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
			assert.Contains(t, h.Checks, tt.checker.Name())
		})
	}
}
