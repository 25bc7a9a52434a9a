package algod

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"

	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

const tokenHeader = "X-Algo-API-Token"

func pendingServer(t *testing.T, wantPath string, resp models.PendingTransactionInfoResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/msgpack")
		_, _ = w.Write(msgpack.Encode(resp))
	}))
}

func TestGetTransactionStatusConfirmed(t *testing.T) {
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get(tokenHeader)
		if r.URL.Path != "/v2/transactions/pending/TX1" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(msgpack.Encode(models.PendingTransactionInfoResponse{ConfirmedRound: 5, AssetIndex: 42}))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	status, err := client.GetTransactionStatus(context.Background(), "TX1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "secret" {
		t.Fatalf("expected token header, got %q", token)
	}
	if !status.Confirmed() || status.AssetIndex != 42 || status.Rejected() {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestGetTransactionStatusPoolError(t *testing.T) {
	srv := pendingServer(t, "/v2/transactions/pending/TX2", models.PendingTransactionInfoResponse{PoolError: "overspend"})
	defer srv.Close()

	client, _ := NewClient(srv.URL, "")
	status, err := client.GetTransactionStatus(context.Background(), "TX2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Confirmed() || !status.Rejected() || status.PoolError != "overspend" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestGetTransactionStatusNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client, _ := NewClient(srv.URL, "")
	status, err := client.GetTransactionStatus(context.Background(), "TX3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != (TransactionStatus{}) {
		t.Fatalf("expected zero status, got %+v", status)
	}
}

func TestGetTransactionStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "")
	_, err := client.GetTransactionStatus(context.Background(), "TX4")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestGetTransactionStatusTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, "", WithTimeout(20*time.Millisecond))
	_, err := client.GetTransactionStatus(context.Background(), "TX5")
	if pkgerrors.CodeOf(err) != pkgerrors.CodeTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestGetTransactionStatusRequiresID(t *testing.T) {
	client, _ := NewClient("http://127.0.0.1:1", "")
	if _, err := client.GetTransactionStatus(context.Background(), " "); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetAccountInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/accounts/ADDR" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":"ADDR","amount":1500000,"amount-without-pending-rewards":1500000,"min-balance":100000,"pending-rewards":0,"rewards":0,"round":77,"status":"Offline","total-apps-opted-in":0,"total-assets-opted-in":0,"total-created-apps":0,"total-created-assets":0}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL+"/", "")
	info, err := client.GetAccountInfo(context.Background(), "ADDR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Amount != 1500000 || info.MinBalance != 100000 || info.Round != 77 {
		t.Fatalf("unexpected account info %+v", info)
	}

	if _, err := client.GetAccountInfo(context.Background(), "MISSING"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(" ", "token"); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
