package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/pagination"
)

type fakeTokens struct {
	mu          sync.Mutex
	token       string
	invalidated int
}

func (f *fakeTokens) AccessToken(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokens) Invalidate(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.invalidated++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeTokens) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	doer := httpclient.New(httpclient.Config{Timeout: 2 * time.Second, MaxRetries: 0, MaxConnsPerHost: 4})
	c := New(server.URL+"/", doer, testLogger())
	tokens := &fakeTokens{token: "access-1"}
	c.SetTokenSource(tokens)
	return c, tokens
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ---------------------------------------------------------------------------
// Transport behaviour
// ---------------------------------------------------------------------------

func TestCall_SendsHeaders(t *testing.T) {
	var got http.Header
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, `{"id":1,"email":"a@b.co"}`)
	})

	ctx := logger.WithCorrelationID(context.Background(), "corr-9")
	_, err := c.Profile(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "corr-9", got.Get("X-Correlation-ID"))
}

func TestCall_NoTokenNoAuthorization(t *testing.T) {
	var auth string
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `[]`)
	})
	tokens.token = ""

	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestCall_UnauthorizedInvalidatesTokens(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Given token not valid for any token type"}`)
	})

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, "Given token not valid for any token type", apperrors.DisplayMessage(err))
	assert.Equal(t, 1, tokens.invalidated)
	assert.Empty(t, tokens.token)
}

func TestCall_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	c := New(server.URL, httpclient.New(httpclient.Config{Timeout: time.Second}), testLogger())

	_, err := c.GetProduct(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRemoteCall)
	assert.Equal(t, "get product failed, please try again", apperrors.DisplayMessage(err))
}

func TestCall_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id":`)
	})

	_, err := c.GetProduct(context.Background(), "1")
	assert.ErrorIs(t, err, apperrors.ErrRemoteCall)
}

func TestPing(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusUnauthorized)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	})

	assert.NoError(t, c.Ping(context.Background()))

	status.Store(http.StatusBadGateway)
	assert.Error(t, c.Ping(context.Background()))
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func TestListProducts_QueryAndPlainList(t *testing.T) {
	var query map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/", r.URL.Path)
		query = r.URL.Query()
		writeJSON(w, http.StatusOK, `[{"id":1,"name":"Mug","price":"8.50","final_price":"8.50"}]`)
	})

	filter := domain.ProductFilter{Category: "3", Search: "mug", Sort: "price"}
	page, err := c.ListProducts(context.Background(), filter, pagination.Params{Page: 2, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, query["category"])
	assert.Equal(t, []string{"mug"}, query["search"])
	assert.Equal(t, []string{"price"}, query["ordering"])
	assert.Equal(t, []string{"2"}, query["page"])
	assert.Equal(t, []string{"10"}, query["page_size"])
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Mug", page.Results[0].Name)
}

func TestListProducts_OmitsEmptyFilters(t *testing.T) {
	var rawQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, `[]`)
	})

	page, err := c.ListProducts(context.Background(), domain.ProductFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
	assert.NotNil(t, page.Results)
}

func TestListProducts_PaginatedEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"count":42,"next":"http://api/products/?page=3","previous":null,
			"results":[{"id":1,"name":"A","price":"1.00"},{"id":2,"name":"B","price":"2.00"}]}`)
	})

	page, err := c.ListProducts(context.Background(), domain.DefaultProductFilter(), pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 42, page.Count)
	assert.Equal(t, "http://api/products/?page=3", page.Next)
	assert.Empty(t, page.Previous)
	assert.Len(t, page.Results, 2)
}

func TestGetProduct_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/99/", r.URL.Path)
		writeJSON(w, http.StatusNotFound, `{"detail":"No encontrado."}`)
	})

	_, err := c.GetProduct(context.Background(), "99")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

func TestProductsByCategory(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/by_category/", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("category_id"))
		writeJSON(w, http.StatusOK, `[{"id":8,"name":"Case","price":"3"}]`)
	})

	products, err := c.ProductsByCategory(context.Background(), "4")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, domain.ID("8"), products[0].ID)
}

func TestFeaturedAndRelated(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/featured/":
			writeJSON(w, http.StatusOK, `[{"id":1,"name":"F","price":"1"}]`)
		case "/api/products/1/related/":
			writeJSON(w, http.StatusOK, `{"results":[{"id":2,"name":"R","price":"1"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	featured, err := c.FeaturedProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, featured, 1)

	related, err := c.RelatedProducts(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "R", related[0].Name)
}

func TestCategories(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/categories/":
			writeJSON(w, http.StatusOK, `{"count":1,"results":[{"id":3,"name":"Audio","is_active":true}]}`)
		case "/api/categories/3/":
			writeJSON(w, http.StatusOK, `{"id":3,"name":"Audio","is_active":true}`)
		}
	})

	cats, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)

	cat, err := c.GetCategory(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Audio", cat.Name)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds domain.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ana@example.com", creds.Email)

		writeJSON(w, http.StatusOK, `{"message":"Login exitoso","user":{"id":4,"email":"ana@example.com"},
			"tokens":{"refresh":"r","access":"a"}}`)
	})

	res, err := c.Login(context.Background(), domain.Credentials{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("4"), res.User.ID)
	assert.Equal(t, domain.Tokens{Access: "a", Refresh: "r"}, res.Tokens)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":{"non_field_errors":["Credenciales inválidas"]}}`)
	})

	_, err := c.Login(context.Background(), domain.Credentials{Email: "a@b.co", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Credenciales inválidas", apperrors.DisplayMessage(err))
	assert.Equal(t, 1, tokens.invalidated)
}

func TestRegister_FieldErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"email":["Ya existe un usuario con este email."]}`)
	})

	_, err := c.Register(context.Background(), domain.Registration{Email: "a@b.co"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_INPUT", appErr.Code)
	assert.Equal(t, "Ya existe un usuario con este email.", appErr.Fields["email"])
}

func TestRefreshAndLogout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body.Refresh)

		switch r.URL.Path {
		case "/api/auth/refresh/":
			writeJSON(w, http.StatusOK, `{"access":"a2","refresh":"r2"}`)
		case "/api/auth/logout/":
			writeJSON(w, http.StatusOK, `{"message":"Sesión cerrada exitosamente"}`)
		}
	})

	tokens, err := c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.Tokens{Access: "a2", Refresh: "r2"}, tokens)

	require.NoError(t, c.Logout(context.Background(), "r1"))
}

func TestUpdateProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/profile/", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"message":"Perfil actualizado","user":{"id":4,"first_name":"Ana","city":"Ibagué"}}`)
	})

	u, err := c.UpdateProfile(context.Background(), domain.ProfileUpdate{FirstName: "Ana", City: "Ibagué"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.FirstName)
	assert.Equal(t, "Ibagué", u.City)
}

// ---------------------------------------------------------------------------
// Orders and cart
// ---------------------------------------------------------------------------

func TestMyOrders_ListOrObject(t *testing.T) {
	bodies := []string{
		`[{"id":1,"order_number":"ORD-1","status":"pending","total":"10.00","items_count":1}]`,
		`{"orders":[{"id":1,"order_number":"ORD-1","status":"pending","total":"10.00"}]}`,
		`{"results":[{"id":1,"order_number":"ORD-1","status":"pending","total":"10.00"}]}`,
	}

	for _, body := range bodies {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/orders/my_orders/", r.URL.Path)
			writeJSON(w, http.StatusOK, body)
		})

		orders, err := c.MyOrders(context.Background())
		require.NoError(t, err, body)
		require.Len(t, orders, 1, body)
		assert.Equal(t, "ORD-1", orders[0].OrderNumber)
	}
}

func TestMyOrders_EmptyObject(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	orders, err := c.MyOrders(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestCancelOrder_Delivered(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders/7/cancel/", r.URL.Path)
		writeJSON(w, http.StatusBadRequest, `{"error":"No se puede cancelar un pedido entregado"}`)
	})

	_, err := c.CancelOrder(context.Background(), "7")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, "No se puede cancelar un pedido entregado", apperrors.DisplayMessage(err))
}

func TestOrderStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"order_number":"ORD-7","status":"shipped","total":"99.90","updated_at":"2024-05-02T12:00:00Z"}`)
	})

	s, err := c.OrderStatus(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, s.Status)
	assert.Equal(t, "99.9", s.Total.String())
}

func TestValidateCart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body["items"], 0)
		assert.NotNil(t, body["items"])
		writeJSON(w, http.StatusOK, `{"valid":true,"subtotal":0,"items_count":0}`)
	})

	v, err := c.ValidateCart(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestCheckout_SendsPayloadOnce(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/cart/checkout/", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusInternalServerError, `{"detail":"boom"}`)
	})

	payload := domain.NewOrderPayload(domain.ShippingDetails{ShippingCity: "Ibagué"}, []domain.LineItem{{ProductID: "1", Quantity: 2}})
	_, err := c.Checkout(context.Background(), payload)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRemoteCall)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "Ibagué", got["shipping_city"])
	assert.Len(t, got["items"], 1)
}

func TestCheckout_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"message":"Pedido creado exitosamente","order":{"id":31,"order_number":"ORD-31","status":"pending","total":"20.00"}}`)
	})

	res, err := c.Checkout(context.Background(), domain.OrderPayload{})
	require.NoError(t, err)
	assert.Equal(t, domain.ID("31"), res.Order.ID)
	assert.Equal(t, "Pedido creado exitosamente", res.Message)
}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

func TestCall_RecordsClientSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"detail":"down"}`)
	})

	_, err := c.GetProduct(context.Background(), "7")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "storefront-api get product", span.Name())
	assert.Equal(t, trace.SpanKindClient, span.SpanKind())
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "GET", attrs["http.request.method"].AsString())
	assert.Equal(t, "/api/products/7/", attrs["url.path"].AsString())
	assert.Equal(t, int64(http.StatusServiceUnavailable), attrs["http.response.status_code"].AsInt64())
}
