package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unify/internal/contact/models"
	dErrors "unify/pkg/domain-errors"
)

type stubService struct {
	view *models.IdentityView
	err  error
	obs  models.Observation
}

func (s *stubService) Resolve(_ context.Context, obs models.Observation) (*models.IdentityView, error) {
	s.obs = obs
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func newTestRouter(svc Service) chi.Router {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func postIdentify(t *testing.T, router chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/identify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleIdentifySuccess(t *testing.T) {
	svc := &stubService{
		view: &models.IdentityView{
			PrimaryContactID:    1,
			Emails:              []string{"a@x.com", "b@x.com"},
			PhoneNumbers:        []string{"111"},
			SecondaryContactIDs: []int64{2},
		},
	}
	rec := postIdentify(t, newTestRouter(svc), `{"email":"b@x.com","phoneNumber":"111"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp IdentifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Contact.PrimaryContactID)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, resp.Contact.Emails)
	assert.Equal(t, []string{"111"}, resp.Contact.PhoneNumbers)
	assert.Equal(t, []int64{2}, resp.Contact.SecondaryContactIDs)

	assert.Equal(t, models.Observation{Email: "b@x.com", PhoneNumber: "111"}, svc.obs)
}

func TestHandleIdentifyEmptyListsNotNull(t *testing.T) {
	svc := &stubService{
		view: &models.IdentityView{
			PrimaryContactID:    1,
			Emails:              []string{"a@x.com"},
			PhoneNumbers:        []string{},
			SecondaryContactIDs: []int64{},
		},
	}
	rec := postIdentify(t, newTestRouter(svc), `{"email":"a@x.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phoneNumbers":[]`)
	assert.Contains(t, rec.Body.String(), `"secondaryContactIds":[]`)
}

func TestHandleIdentifyBothFieldsEmpty(t *testing.T) {
	svc := &stubService{}
	rec := postIdentify(t, newTestRouter(svc), `{"email":"  ","phoneNumber":null}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one of email or phoneNumber")
	assert.Zero(t, svc.obs, "service must not be called for invalid input")
}

func TestHandleIdentifyMalformedJSON(t *testing.T) {
	rec := postIdentify(t, newTestRouter(&stubService{}), `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIdentifyServiceError(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeInternal, "store unavailable")}
	rec := postIdentify(t, newTestRouter(svc), `{"phoneNumber":"111"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "store unavailable",
		"internal details must not leak to clients")
}

func TestHandleIdentifyConflictError(t *testing.T) {
	svc := &stubService{err: dErrors.New(dErrors.CodeConflict, "resolution conflicted after retry")}
	rec := postIdentify(t, newTestRouter(svc), `{"phoneNumber":"111"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidateTrimsWhitespace(t *testing.T) {
	email := "  a@x.com "
	phone := " 111 "
	req := &IdentifyRequest{Email: &email, PhoneNumber: &phone}

	require.NoError(t, req.Validate())
	assert.Equal(t, models.Observation{Email: "a@x.com", PhoneNumber: "111"}, req.Observation())
}
