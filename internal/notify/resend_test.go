package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": "email-1"}`))
	}))
	defer server.Close()

	client := NewClient(nil, "re_test_key", "Deejiar System <system@deejiar.com>", "hi@deejiar.com", WithBaseURL(server.URL))

	err := client.Send(context.Background(), "Account deletion - 2 accounts deleted", "body text")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotAuth != "Bearer re_test_key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["subject"] != "Account deletion - 2 accounts deleted" {
		t.Fatalf("unexpected subject %v", gotBody["subject"])
	}
	recipients, ok := gotBody["to"].([]any)
	if !ok || len(recipients) != 1 || recipients[0] != "hi@deejiar.com" {
		t.Fatalf("unexpected recipients %v", gotBody["to"])
	}
}

func TestSendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(nil, "re_test_key", "from@deejiar.com", "to@deejiar.com", WithBaseURL(server.URL))

	if err := client.Send(context.Background(), "subject", "body"); err == nil {
		t.Fatal("expected error for a 4xx response")
	}
}
