package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/voucherverse/storefront-api/internal/domain"
	"github.com/voucherverse/storefront-api/internal/services"
)

func TestEmailWebhook_AppliesAndAcks(t *testing.T) {
	type call struct{ typ, refs string }
	var calls []call
	h := New(Deps{Deliveries: stubDeliveries{
		apply: func(typ string, refs []string) (services.EventResult, error) {
			calls = append(calls, call{typ, strings.Join(refs, ",")})
			switch typ {
			case "email.delivered":
				return services.EventResult{Status: domain.ClaimDelivered, Changed: true}, nil
			case "email.bounced":
				return services.EventResult{}, services.ErrClaimNotFound
			default:
				return services.EventResult{}, errors.New("db down")
			}
		},
	}})
	r := newRouter(h)

	for _, typ := range []string{"email.delivered", "email.opened", "email.bounced", "email.failed"} {
		w := do(r, http.MethodPost, "/email/webhook", `{"type":"`+typ+`","data":{"email_id":"msg-1"}}`)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", typ, w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"received":true`) {
			t.Fatalf("%s: body=%s", typ, w.Body.String())
		}
	}
	// email.opened maps to no claim status and never reaches the service
	if len(calls) != 3 || calls[0] != (call{"email.delivered", ",msg-1"}) {
		t.Fatalf("calls=%+v", calls)
	}
}

func TestEmailWebhook_UntrackedEventsAreAcknowledged(t *testing.T) {
	h := New(Deps{Deliveries: stubDeliveries{
		apply: func(string, []string) (services.EventResult, error) {
			t.Fatal("service must not be called")
			return services.EventResult{}, nil
		},
	}})
	r := newRouter(h)

	for _, body := range []string{
		`{"type":"contact.created","data":{"id":"c1"}}`,
		`{"type":"domain.updated","data":{}}`,
		`{"type":"email.opened","data":{"tags":"odd"}}`,
	} {
		w := do(r, http.MethodPost, "/email/webhook", body)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"received":true`) {
			t.Fatalf("%s: status=%d body=%s", body, w.Code, w.Body.String())
		}
	}
}

func TestEmailWebhook_TagEmailIDComesFirst(t *testing.T) {
	var got [][]string
	h := New(Deps{Deliveries: stubDeliveries{
		apply: func(_ string, refs []string) (services.EventResult, error) {
			got = append(got, refs)
			return services.EventResult{Status: domain.ClaimDelivered, Changed: true}, nil
		},
	}})
	r := newRouter(h)

	bodies := []string{
		`{"type":"email.delivered","data":{"email_id":"re_1","tags":{"email_id":"claim-1","category":"voucher_claim"}}}`,
		`{"type":"email.delivered","data":{"email_id":"re_2","tags":[{"name":"email_id","value":"claim-2"}]}}`,
		`{"type":"email.delivered","data":{"tags":{"email_id":"claim-3"}}}`,
	}
	for _, body := range bodies {
		if w := do(r, http.MethodPost, "/email/webhook", body); w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", body, w.Code, w.Body.String())
		}
	}
	want := []string{"claim-1,re_1", "claim-2,re_2", "claim-3,"}
	if len(got) != len(want) {
		t.Fatalf("calls=%v", got)
	}
	for i := range want {
		if strings.Join(got[i], ",") != want[i] {
			t.Fatalf("call %d refs=%v want %s", i, got[i], want[i])
		}
	}
}

func TestEmailWebhook_Malformed(t *testing.T) {
	h := New(Deps{Deliveries: stubDeliveries{
		apply: func(string, []string) (services.EventResult, error) {
			t.Fatal("service must not be called")
			return services.EventResult{}, nil
		},
	}})
	r := newRouter(h)

	cases := []struct {
		body string
		msg  string
	}{
		{`not json`, "Invalid request format."},
		{`{"data":{"email_id":"m"}}`, "Missing required parameters: type."},
		{`{"type":"email.sent"}`, "Missing required parameters: data.email_id."},
	}
	for _, tc := range cases {
		w := do(r, http.MethodPost, "/email/webhook", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d", tc.body, w.Code)
			continue
		}
		if er := decodeErr(t, w); er.Message != tc.msg {
			t.Errorf("%s: message=%q", tc.body, er.Message)
		}
	}
}
