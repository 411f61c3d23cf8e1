package easypost

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/vaulttrove/labels-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("EZTK_test", WithBaseURL("http://carrier.test/v2"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateShipmentRequest(t *testing.T) {
	var captured *http.Request
	var payload map[string]map[string]any

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"id":"shp_1","rates":[{"id":"rate_1","shipment_id":"shp_1","carrier":"USPS","service":"GroundAdvantage","rate":"4.20"}]}`), nil
	})

	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{
		ToAddress:   Address{Name: "Ash", Street1: "1 Main", City: "Austin", State: "TX", Zip: "78701", Country: "US"},
		FromAddress: Address{Name: "Shop", Street1: "2 Side", City: "Dallas", State: "TX", Zip: "75001", Country: "US"},
		Parcel:      Parcel{PredefinedPackage: "Letter", Weight: 1},
		Options:     Options{LabelFormat: "PDF", LabelSize: "4x6", Machinable: true, PrintCustom1: "A-1"},
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}

	if captured.URL.String() != "http://carrier.test/v2/shipments" {
		t.Fatalf("unexpected URL %s", captured.URL)
	}
	user, pass, ok := captured.BasicAuth()
	if !ok || user != "EZTK_test" || pass != "" {
		t.Fatalf("expected basic auth with api key, got %q %q %v", user, pass, ok)
	}
	opts, _ := payload["shipment"]["options"].(map[string]any)
	if opts["label_size"] != "4x6" || opts["machinable"] != true || opts["print_custom_1"] != "A-1" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if len(shipment.Rates) != 1 || shipment.Rates[0].Rate != "4.20" {
		t.Fatalf("unexpected rates %+v", shipment.Rates)
	}
}

func TestBuyShipmentSendsRateID(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v2/shipments/shp_1/buy" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		raw, _ := io.ReadAll(req.Body)
		if !strings.Contains(string(raw), `"rate":{"id":"rate_9"}`) {
			t.Fatalf("unexpected body %s", raw)
		}
		return jsonResponse(http.StatusOK, `{"id":"shp_1","tracking_code":"9400","tracker":{"public_url":"https://track/9400"},"postage_label":{"label_url":"https://labels/1.pdf"}}`), nil
	})

	shipment, err := client.BuyShipment(context.Background(), "shp_1", "rate_9")
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if shipment.LabelURL() != "https://labels/1.pdf" || shipment.TrackingURL() != "https://track/9400" {
		t.Fatalf("unexpected shipment %+v", shipment)
	}
}

func TestBuyShipmentRequiresIDs(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := client.BuyShipment(context.Background(), "", "rate")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestErrorResponseIsDecoded(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":{"code":"ADDRESS.VERIFY.FAILURE","message":"Unable to verify address."}}`), nil
	})

	_, err := client.CreateShipment(context.Background(), ShipmentRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected api error in chain")
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Code != "ADDRESS.VERIFY.FAILURE" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if typed.Message() != "Unable to verify address." {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestVerifyCredentialsUnauthorized(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v2/addresses" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusUnauthorized, `not json`), nil
	})
	err := client.VerifyCredentials(context.Background())
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "not json" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected missing key error")
	}
}
