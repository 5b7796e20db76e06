package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScrape(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	Lookups.WithLabelValues(Result(nil)).Inc()
	Lookups.WithLabelValues(Result(errors.New("x"))).Inc()
	FanOutOutcomes.WithLabelValues("register", "ok").Inc()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `topicdisc_discovery_lookups_total{result="ok"}`)
	require.Contains(t, string(body), `topicdisc_discovery_lookups_total{result="error"}`)
	require.Contains(t, string(body), `topicdisc_fanout_outcomes_total{op="register",result="ok"}`)
}

func TestRegisterTwice(t *testing.T) {
	require.NotPanics(t, func() {
		Register()
		Register()
	})
}
