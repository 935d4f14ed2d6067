package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/checkin/internal/apperr"
)

func TestWriteErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.Invalid("reminder_time is required"), http.StatusBadRequest, "reminder_time is required"},
		{apperr.Unauthenticated("Invalid email or password"), http.StatusUnauthorized, "Invalid email or password"},
		{apperr.NotFoundf("Reminder not found"), http.StatusNotFound, "Reminder not found"},
		{apperr.Forbiddenf("Access denied"), http.StatusForbidden, "Access denied"},
		{apperr.Internal(errors.New("no such table"), "Failed to load reminders"), http.StatusInternalServerError, "Failed to load reminders"},
		{errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		var logs bytes.Buffer
		rec := httptest.NewRecorder()
		writeError(rec, slog.New(slog.NewTextHandler(&logs, nil)), tt.err)

		if rec.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		if body := rec.Body.String(); !strings.Contains(body, `"error":"`+tt.msg+`"`) {
			t.Errorf("%v: body = %s", tt.err, body)
		}
		if rec.Code == http.StatusInternalServerError && logs.Len() == 0 {
			t.Errorf("%v: storage failure should be logged", tt.err)
		}
		if rec.Code != http.StatusInternalServerError && logs.Len() != 0 {
			t.Errorf("%v: client error should not be logged: %s", tt.err, logs.String())
		}
	}
}

func TestInternalCauseNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, slog.New(slog.NewTextHandler(io.Discard, nil)), apperr.Internal(errors.New("SQL logic error near SELECT"), "Failed"))
	if strings.Contains(rec.Body.String(), "SQL") {
		t.Errorf("body leaks cause: %s", rec.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Maya"}`))
	if err := decodeJSON(httptest.NewRecorder(), req, &v); err != nil || v.Name != "Maya" {
		t.Errorf("decode = %v, %+v", err, v)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	if err := decodeJSON(httptest.NewRecorder(), req, &v); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("malformed: %v, want validation", err)
	}

	big := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req = httptest.NewRequest("POST", "/", strings.NewReader(big))
	err := decodeJSON(httptest.NewRecorder(), req, &v)
	if apperr.Message(err) != "request body too large" {
		t.Errorf("oversized: %v", err)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2026-03-14T15:00:00Z", "2026-03-14T15:00:00.000Z", "2026-03-14T08:00:00-07:00"} {
		got, err := parseTime(s)
		if err != nil {
			t.Errorf("parseTime(%q): %v", s, err)
			continue
		}
		if got.UTC().Hour() != 15 {
			t.Errorf("parseTime(%q) = %v", s, got)
		}
	}
	if _, err := parseTime("03/14/2026"); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("bad format: %v", err)
	}
	if got, err := parseTime(""); err != nil || !got.IsZero() {
		t.Errorf("empty = %v, %v", got, err)
	}
}
