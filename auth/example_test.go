package auth_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/jonwraymond/healthops/auth"
)

func ExampleMiddleware() {
	store := auth.NewMemoryAPIKeyStore()
	store.AddKey("ci", "s3cr3t", "health:read")
	authn, _ := auth.NewAPIKeyAuthenticator("", store)

	detail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "hello %s", auth.PrincipalFromContext(r.Context()))
	})
	handler := auth.Middleware(authn, auth.WithRequiredScope("health:read"))(detail)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	fmt.Println(rec.Code)

	req.Header.Set("X-API-Key", "s3cr3t")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	fmt.Println(rec.Code, rec.Body.String())
	// Output:
	// 401
	// 200 hello ci
}
