package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"plantao_backend/platform/logger"
)

type cfgStub struct {
	url    string
	key    string
	device string
}

func (c cfgStub) GetWhatsAppURL() string      { return c.url }
func (c cfgStub) GetWhatsAppKey() string      { return c.key }
func (c cfgStub) GetWhatsAppDeviceID() string { return c.device }

func TestNewClientWithoutURLReturnsNil(t *testing.T) {
	if c := NewClient(cfgStub{}, logger.New("test")); c != nil {
		t.Fatal("expected nil client when no gateway URL is configured")
	}
}

func TestNilClientDropsMessage(t *testing.T) {
	var c *Client
	if err := c.Send(context.Background(), "+5511999990000", "oi"); err != nil {
		t.Fatalf("nil client send: %v", err)
	}
}

func TestSendPostsGowaPayload(t *testing.T) {
	var got gowaRequest
	var auth, device string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send/message" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		device = r.Header.Get("X-Device-Id")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(cfgStub{url: srv.URL, key: "secret", device: "dev-1"}, logger.New("test"))
	if err := c.Send(context.Background(), "+55 (11) 99999-0000", "Olá {{name}}"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Phone != "5511999990000" {
		t.Fatalf("phone = %q, want digits without plus", got.Phone)
	}
	if got.Message == "" {
		t.Fatal("message not forwarded")
	}
	if !strings.HasPrefix(auth, "Basic ") {
		t.Fatalf("authorization = %q, want basic auth", auth)
	}
	if device != "dev-1" {
		t.Fatalf("device header = %q", device)
	}
}

func TestSendSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(cfgStub{url: srv.URL}, logger.New("test"))
	if err := c.Send(context.Background(), "+5511999990000", "oi"); err == nil {
		t.Fatal("expected error for gateway failure")
	}
}
