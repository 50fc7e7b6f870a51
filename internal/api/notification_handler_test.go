package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Валидация enqueue-запроса отрабатывает до обращения к БД,
// поэтому тестируется с пустым репозиторием.
func serveEnqueue(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := webhookTestHandler(t, &fakeStore{})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestEnqueue_Validation(t *testing.T) {
	cases := map[string]string{
		"invalid body":      `{nope`,
		"missing user_id":   `{"channel":"whatsapp","recipient":"5511999998888","alert_type":"new_search_result","entity_type":"lot","entity_id":7}`,
		"missing recipient": `{"user_id":42,"channel":"whatsapp","alert_type":"new_search_result","entity_type":"lot","entity_id":7}`,
		"missing alert":     `{"user_id":42,"channel":"whatsapp","recipient":"5511999998888","entity_type":"lot","entity_id":7}`,
		"missing entity":    `{"user_id":42,"channel":"whatsapp","recipient":"5511999998888","alert_type":"new_search_result"}`,
		"unknown channel":   `{"user_id":42,"channel":"fax","recipient":"5511999998888","alert_type":"new_search_result","entity_type":"lot","entity_id":7}`,
		"unknown provider":  `{"user_id":42,"channel":"whatsapp","provider":"smoke","recipient":"5511999998888","alert_type":"new_search_result","entity_type":"lot","entity_id":7}`,
		"bad phone":         `{"user_id":42,"channel":"whatsapp","recipient":"not-a-phone","alert_type":"new_search_result","entity_type":"lot","entity_id":7}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serveEnqueue(t, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListNotifications_InvalidParams(t *testing.T) {
	h := webhookTestHandler(t, &fakeStore{})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	for _, target := range []string{
		"/api/v1/notifications?status=flying",
		"/api/v1/notifications?limit=-1",
		"/api/v1/notifications?limit=99999",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}
