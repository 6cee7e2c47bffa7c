package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLocaleContext(target string, headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestResolveLocale(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		headers map[string]string
		want    string
	}{
		{name: "default", target: "/", want: LocaleKO},
		{name: "query", target: "/?lang=en", want: LocaleEN},
		{name: "header", target: "/", headers: map[string]string{"X-Locale": "en-GB"}, want: LocaleEN},
		{name: "accept_language", target: "/", headers: map[string]string{"Accept-Language": "en-US,en;q=0.9,ko;q=0.5"}, want: LocaleEN},
		{name: "accept_language_korean", target: "/", headers: map[string]string{"Accept-Language": "ko-KR,ko;q=0.9"}, want: LocaleKO},
		{name: "garbage", target: "/", headers: map[string]string{"Accept-Language": ";;;"}, want: LocaleKO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveLocale(newLocaleContext(tc.target, tc.headers))
			if got != tc.want {
				t.Fatalf("want %s got %s", tc.want, got)
			}
		})
	}
}

func TestTFallback(t *testing.T) {
	if got := T(LocaleEN, "error.product_not_found"); got != "Product not found" {
		t.Fatalf("want Product not found got %s", got)
	}
	if got := T("fr-FR", "error.product_not_found"); got != messages[LocaleKO]["error.product_not_found"] {
		t.Fatalf("unknown locale should fall back to korean, got %s", got)
	}
	if got := T(LocaleEN, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should echo key, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.validation_field", "email"); got != "Invalid input: email" {
		t.Fatalf("unexpected sprintf result: %s", got)
	}
}

func TestMessageTablesAligned(t *testing.T) {
	for key := range messages[LocaleKO] {
		if _, ok := messages[LocaleEN][key]; !ok {
			t.Fatalf("en-US missing key %s", key)
		}
	}
	for key := range messages[LocaleEN] {
		if _, ok := messages[LocaleKO][key]; !ok {
			t.Fatalf("ko-KR missing key %s", key)
		}
	}
}
