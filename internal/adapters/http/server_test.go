package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactboard/internal/domain"
)

type stubAnalytics struct {
	analytics domain.ChannelAnalytics
	err       error
}

func (s *stubAnalytics) ChannelScores(context.Context, string, string) (domain.ChannelAnalytics, error) {
	return s.analytics, s.err
}
func (s *stubAnalytics) ObjectiveHealth(context.Context, string) ([]domain.ObjectiveHealth, error) {
	return nil, s.err
}
func (s *stubAnalytics) Flags(context.Context, string) ([]domain.Flag, error) { return nil, s.err }

type stubCompliance struct {
	check domain.ComplianceCheck
	found bool
	err   error
}

func (s *stubCompliance) RunCheck(context.Context, string, string) (domain.ComplianceCheck, domain.CheckDiff, error) {
	return s.check, domain.CheckDiff{}, s.err
}
func (s *stubCompliance) Latest(context.Context, string) (domain.ComplianceCheck, domain.CheckDiff, bool, bool, error) {
	return s.check, domain.CheckDiff{}, false, s.found, s.err
}
func (s *stubCompliance) UpdateIssueStatus(context.Context, string, string, string, string, string) error {
	return s.err
}

type stubOverrides struct {
	saved domain.FlagOverride
	err   error
}

func (s *stubOverrides) Record(_ context.Context, ov domain.FlagOverride, _ string) (domain.FlagOverride, error) {
	if s.err != nil {
		return domain.FlagOverride{}, s.err
	}
	s.saved = ov
	return ov, nil
}
func (s *stubOverrides) Current(context.Context, string) ([]domain.FlagOverride, error) {
	return nil, s.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestServer(a *stubAnalytics, c *stubCompliance, o *stubOverrides) *httptest.Server {
	srv := New(a, c, o, nil, quietLogger())
	return httptest.NewServer(srv.Routes())
}

func TestGetChannelScores(t *testing.T) {
	score := 0.004
	lag := 14.0
	a := &stubAnalytics{analytics: domain.ChannelAnalytics{
		Channels:            []domain.ChannelScore{{ChannelID: "chA", Score: &score}},
		MedianUptakeLagDays: &lag,
	}}
	ts := newTestServer(a, &stubCompliance{}, &stubOverrides{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/projects/p1/analytics/channels")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "channels")
	assert.Contains(t, body, "median_uptake_lag_days")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"permission denied maps to 403", domain.ErrPermissionDenied, http.StatusForbidden},
		{"not found maps to 404", domain.ErrNotFound, http.StatusNotFound},
		{"validation maps to 422", domain.ErrValidation, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(&stubAnalytics{}, &stubCompliance{err: tt.err}, &stubOverrides{})
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/projects/p1/compliance/checks", "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestPostOverride(t *testing.T) {
	o := &stubOverrides{}
	ts := newTestServer(&stubAnalytics{}, &stubCompliance{}, o)
	defer ts.Close()

	body := `{"flag_code":"inefficient_channel","entity_type":"channel","entity_id":"ch1","status":"acknowledged","rationale":"kept on purpose"}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/projects/p1/overrides", strings.NewReader(body))
	req.Header.Set("X-Actor-ID", "alice")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "p1", o.saved.ProjectID)
	assert.Equal(t, "ch1", o.saved.EntityRef)
}

func TestGetLatest_NoRunYet(t *testing.T) {
	ts := newTestServer(&stubAnalytics{}, &stubCompliance{found: false}, &stubOverrides{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/projects/p1/compliance/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
