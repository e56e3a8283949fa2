package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
)

func tagger(tag string, order *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChain(t *testing.T) {
	t.Run("FirstMiddlewareIsOutermost", func(t *testing.T) {
		// Arrange
		var order []string
		h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}), tagger("outer", &order), tagger("inner", &order))

		// Act
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		// Assert
		if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
			t.Fatalf("unexpected execution order %v", order)
		}
	})

	t.Run("NoMiddleware", func(t *testing.T) {
		// Arrange
		called := false
		h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))

		// Act
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		// Assert
		if !called {
			t.Fatal("expected the handler to run")
		}
	})
}

type staticID struct{ value string }

func (s staticID) Generate() string { return s.value }

func TestMiddlewareCorrelationID(t *testing.T) {
	t.Run("GeneratesWhenMissing", func(t *testing.T) {
		// Arrange
		var got string
		h := middlewareCorrelationID(staticID{value: "cid-123"})(
			http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = instrument.GetCorrelationID(r.Context())
			}))
		rec := httptest.NewRecorder()

		// Act
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		// Assert
		if got != "cid-123" {
			t.Fatalf("expected generated id in context, got %q", got)
		}
		if rec.Header().Get(HeaderCorrelationID) != "cid-123" {
			t.Fatalf("expected id echoed in header, got %q", rec.Header().Get(HeaderCorrelationID))
		}
	})

	t.Run("KeepsIncomingHeader", func(t *testing.T) {
		// Arrange
		var got string
		h := middlewareCorrelationID(staticID{value: "cid-123"})(
			http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = instrument.GetCorrelationID(r.Context())
			}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCorrelationID, "upstream-42")

		// Act
		h.ServeHTTP(httptest.NewRecorder(), req)

		// Assert
		if got != "upstream-42" {
			t.Fatalf("expected upstream id kept, got %q", got)
		}
	})
}
