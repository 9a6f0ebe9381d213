package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(imagesTotal.WithLabelValues("saved"))
	ObserveImage("saved")
	ObserveImage("saved")
	assert.Equal(t, before+2, testutil.ToFloat64(imagesTotal.WithLabelValues("saved")))

	before = testutil.ToFloat64(archivesTotal.WithLabelValues("FETCH_FAILED"))
	ObserveArchive("FETCH_FAILED")
	assert.Equal(t, before+1, testutil.ToFloat64(archivesTotal.WithLabelValues("FETCH_FAILED")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveFetch("page", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "webkeep_fetch_duration_seconds")
}
