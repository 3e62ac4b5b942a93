package volume

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"midas/contexts/treasury-core/claim-distribution/domain/entities"
)

func TestFetchWeightsAcceptsSchemaAliases(t *testing.T) {
	responses := map[string]string{
		"tok-a": `{"volume_usd": 1500}`,
		"tok-b": `{"volumeUsd": "2500.75"}`,
		"tok-c": `{"total_volume": 300, "unrelated": true}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for tokenID, body := range responses {
			if r.URL.Path == "/tokens/"+tokenID+"/stats" {
				fmt.Fprint(w, body)
				return
			}
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1000, nil)
	weights, err := client.FetchWeights(context.Background(), []entities.Token{
		{ID: "tok-a"}, {ID: "tok-b"}, {ID: "tok-c"},
	}, map[string]uint64{"tok-a": 500})
	if err != nil {
		t.Fatalf("fetch weights: %v", err)
	}

	expected := []struct {
		current uint64
		delta   uint64
	}{
		{1500, 1000},
		{2500, 2500},
		{300, 300},
	}
	for i, want := range expected {
		if weights[i].Current != want.current || weights[i].Delta != want.delta {
			t.Fatalf("weight[%d] = %+v, want current %d delta %d", i, weights[i], want.current, want.delta)
		}
	}
}

func TestFetchWeightsDegradesFailuresToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens/down/stats":
			w.WriteHeader(http.StatusInternalServerError)
		case "/tokens/drifted/stats":
			fmt.Fprint(w, `{"brand_new_field": 999}`)
		case "/tokens/garbage/stats":
			fmt.Fprint(w, `not json at all`)
		case "/tokens/ok/stats":
			fmt.Fprint(w, `{"usd_volume": 700}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 1000, nil)
	weights, err := client.FetchWeights(context.Background(), []entities.Token{
		{ID: "down"}, {ID: "drifted"}, {ID: "garbage"}, {ID: "ok"},
	}, nil)
	if err != nil {
		t.Fatalf("fetch weights must not fail the cycle: %v", err)
	}

	for i, tokenID := range []string{"down", "drifted", "garbage"} {
		if weights[i].TokenID != tokenID || weights[i].Current != 0 || weights[i].Delta != 0 {
			t.Fatalf("weight[%d] = %+v, want zero for %s", i, weights[i], tokenID)
		}
	}
	if weights[3].Current != 700 {
		t.Fatalf("healthy token weight = %+v, want 700", weights[3])
	}
}

func TestFetchWeightsClampsNegativeDelta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"volume_usd": 100}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1000, nil)
	weights, err := client.FetchWeights(context.Background(), []entities.Token{{ID: "tok"}},
		map[string]uint64{"tok": 900})
	if err != nil {
		t.Fatalf("fetch weights: %v", err)
	}
	if weights[0].Delta != 0 {
		t.Fatalf("delta = %d, want 0 when source regressed below snapshot", weights[0].Delta)
	}
}

func TestExtractVolumeAliasTable(t *testing.T) {
	cases := []struct {
		name string
		body string
		want uint64
		ok   bool
	}{
		{"first alias", `{"volume_usd": 10}`, 10, true},
		{"camel case", `{"volumeUsd": 20}`, 20, true},
		{"string number", `{"usd_volume": "30"}`, 30, true},
		{"negative rejected", `{"volume_usd": -5}`, 0, false},
		{"non-numeric string", `{"volume_usd": "lots"}`, 0, false},
		{"unknown fields", `{"volume": 40}`, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload map[string]json.RawMessage
			if err := json.Unmarshal([]byte(tc.body), &payload); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			value, ok := extractVolume(payload)
			if value != tc.want || ok != tc.ok {
				t.Fatalf("extract(%s) = (%d, %v), want (%d, %v)", tc.body, value, ok, tc.want, tc.ok)
			}
		})
	}
}
