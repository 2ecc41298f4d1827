package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/catalog"
	"github.com/trezcool/tutoring/core/user"
	testutil "github.com/trezcool/tutoring/tests"
)

func Test_cartApi_identity(t *testing.T) {
	app := setup(t)

	// anonymous first visit: a session & a token are issued
	first := httpTest{method: http.MethodGet, path: "/api/v1/cart"}
	rec := first.do(app)
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(conf.Cart.TokenHeader)
	require.NotEmpty(t, token)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	sum := decodeSummary(t, rec)
	assert.Empty(t, sum.Items)
	assert.Zero(t, sum.Subtotal)

	stored, err := cartRepo.GetCart(context.Background(), cart.GetFilter{Token: token})
	require.NoError(t, err)
	assert.Equal(t, sum.ID, stored.ID)
	assert.True(t, strings.HasPrefix(stored.SessionID, conf.Cart.GuestSessionPrefix))

	tests := []httpTest{
		{name: "same session", cookies: []*http.Cookie{{Name: cookie.Name, Value: cookie.Value}}},
		{name: "same token", headers: map[string]string{conf.Cart.TokenHeader: token}},
		{name: "token is trimmed", headers: map[string]string{conf.Cart.TokenHeader: "  " + token + " "}},
		{
			name:    "token wins over session",
			headers: map[string]string{conf.Cart.TokenHeader: token},
			cookies: []*http.Cookie{{Name: cookie.Name, Value: "forged.signature"}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/v1/cart"

		t.Run(tt.name, func(t *testing.T) {
			rec := tt.do(app)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, sum.ID, decodeSummary(t, rec).ID)
			assert.Empty(t, rec.Header().Get(conf.Cart.TokenHeader), "no token issued")
		})
	}

	t.Run("forged cookie starts a new session", func(t *testing.T) {
		tt := httpTest{
			method:  http.MethodGet,
			path:    "/api/v1/cart",
			cookies: []*http.Cookie{{Name: cookie.Name, Value: cookie.Value + "x"}},
		}
		rec := tt.do(app)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEqual(t, sum.ID, decodeSummary(t, rec).ID)
		assert.NotEmpty(t, rec.Header().Get(conf.Cart.TokenHeader))
		require.NotNil(t, sessionCookie(rec))
		assert.NotEqual(t, cookie.Value, sessionCookie(rec).Value)
	})

	t.Run("unknown client token", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/v1/cart", headers: map[string]string{conf.Cart.TokenHeader: "from-another-device"}}
		rec := tt.do(app)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(conf.Cart.TokenHeader), "the client token is kept")

		c, err := cartRepo.GetCart(context.Background(), cart.GetFilter{Token: "from-another-device"})
		require.NoError(t, err)
		assert.Equal(t, c.ID, decodeSummary(t, rec).ID)
	})

	t.Run("invalid jwt", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/v1/cart", token: "not.a.jwt", wantCode: http.StatusUnauthorized}
		tt.wantData = marchallObj(t, httpErr{Error: "invalid or expired jwt"})
		checkCodeAndData(t, tt, tt.do(app))
	})
}

func Test_cartApi_addItem(t *testing.T) {
	app := setup(t)

	book := testutil.CreateProduct(t, catRepo, "Workbook", 1500, true)
	retired := testutil.CreateProduct(t, catRepo, "Old workbook", 900, false)
	lesson := testutil.CreateService(t, catRepo, "Maths lesson", catalog.TypeLesson, 4000, 0, 0)

	// a guest cart to work with
	rec := httpTest{method: http.MethodGet, path: "/api/v1/cart"}.do(app)
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(conf.Cart.TokenHeader)
	headers := map[string]string{conf.Cart.TokenHeader: token}

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, echoMap{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{"type": "this field is required", "id": "this field is required"}),
		},
		{
			name: "invalid type", body: marchallObj(t, echoMap{"type": "course", "id": book.ID}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{"type": "type must be one of: product, service"}),
		},
		{
			name: "invalid quantity", body: marchallObj(t, echoMap{"type": "product", "id": book.ID, "quantity": -2}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{"quantity": "quantity must be 1 or greater"}),
		},
		{
			name: "unknown product", body: marchallObj(t, echoMap{"type": "product", "id": 999}), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Product not found."}),
		},
		{
			name: "inactive product", body: marchallObj(t, echoMap{"type": "product", "id": retired.ID}), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Product not found."}),
		},
		{
			name: "unknown service", body: marchallObj(t, echoMap{"type": "service", "id": 999}), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Service not found."}),
		},
		{name: "product", body: marchallObj(t, echoMap{"type": "product", "id": book.ID, "quantity": 2}), wantCode: http.StatusCreated},
		{name: "same product again", body: marchallObj(t, echoMap{"type": "Product", "id": book.ID}), wantCode: http.StatusCreated},
		{name: "service", body: marchallObj(t, echoMap{"type": "service", "id": lesson.ID}), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/v1/cart/items"
		tt.headers = headers

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.do(app))
		})
	}

	rec = httpTest{method: http.MethodGet, path: "/api/v1/cart", headers: headers}.do(app)
	sum := decodeSummary(t, rec)
	require.Len(t, sum.Items, 2)

	assert.Equal(t, catalog.KindProduct, sum.Items[0].Type)
	assert.Equal(t, 3, sum.Items[0].Quantity)
	assert.Equal(t, int64(1500), sum.Items[0].Price)
	assert.Equal(t, int64(4500), sum.Items[0].LineTotal)
	require.NotNil(t, sum.Items[0].Item)
	assert.Equal(t, "Workbook", sum.Items[0].Item.Name)

	assert.Equal(t, catalog.KindService, sum.Items[1].Type)
	assert.Equal(t, 1, sum.Items[1].Quantity)

	assert.Equal(t, int64(8500), sum.Subtotal)
	assert.Equal(t, 4, sum.Count)

	t.Run("count", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/v1/cart/count", headers: headers, wantCode: http.StatusOK}
		tt.wantData = marchallObj(t, echoMap{"count": 4})
		checkCodeAndData(t, tt, tt.do(app))
	})

	t.Run("token from body", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost,
			path:   "/api/v1/cart/items",
			body:   marchallObj(t, echoMap{"type": "product", "id": book.ID, "cart_token": token}),
		}
		rec := tt.do(app)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, sum.ID, decodeSummary(t, rec).ID)
		assert.Equal(t, 4, decodeSummary(t, rec).Items[0].Quantity)
	})
}

func Test_cartApi_addFlexible(t *testing.T) {
	app := setup(t)

	flexible := testutil.CreateService(t, catRepo, "Pick & mix", catalog.TypeFlexible, 12000, 2, 1)
	bundle := testutil.CreateService(t, catRepo, "Bundle", catalog.TypeBundle, 9000, 0, 0)
	headers := map[string]string{conf.Cart.TokenHeader: "flex-cart"}

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, echoMap{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{"service_id": "this field is required"}),
		},
		{
			name: "unknown service", body: marchallObj(t, echoMap{"service_id": 999}), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Service not found."}),
		},
		{
			name: "not flexible", body: marchallObj(t, echoMap{"service_id": bundle.ID}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "This service is not a flexible service."}),
		},
		{
			name:     "wrong selection counts",
			body:     marchallObj(t, echoMap{"service_id": flexible.ID, "selected_lessons": []int64{1}}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoMap{
				"selected_lessons":     "must select exactly 2 live sessions",
				"selected_assessments": "must select exactly 1 assessments",
			}),
		},
		{
			name:     "selections",
			body:     marchallObj(t, echoMap{"service_id": flexible.ID, "selected_lessons": []int64{1, 2}, "selected_assessments": []int64{7}}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "selections replaced",
			body:     marchallObj(t, echoMap{"service_id": flexible.ID, "selected_lessons": []int64{3, 4}, "selected_assessments": []int64{8}}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/v1/cart/flexible"
		tt.headers = headers

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.do(app))
		})
	}

	sum := decodeSummary(t, httpTest{method: http.MethodGet, path: "/api/v1/cart", headers: headers}.do(app))
	require.Len(t, sum.Items, 1)
	assert.Equal(t, 1, sum.Items[0].Quantity)
	assert.Equal(t, int64(12000), sum.Items[0].Price)
	assert.JSONEq(t, `{"selected_lessons":[3,4],"selected_assessments":[8]}`, string(sum.Items[0].Metadata))
}

func Test_cartApi_items(t *testing.T) {
	app := setup(t)

	book := testutil.CreateProduct(t, catRepo, "Workbook", 1500, true)
	mine := testutil.CreateCart(t, cartRepo, cart.Cart{Token: "mine"})
	other := testutil.CreateCart(t, cartRepo, cart.Cart{Token: "other"})
	item := testutil.AddItem(t, cartRepo, cart.Item{CartID: mine.ID, ProductID: book.ID, Quantity: 1, Price: book.Price})
	foreign := testutil.AddItem(t, cartRepo, cart.Item{CartID: other.ID, ProductID: book.ID, Quantity: 1, Price: book.Price})

	itemPath := func(id interface{}) string { return fmt.Sprintf("/api/v1/cart/items/%v", id) }
	headers := map[string]string{conf.Cart.TokenHeader: mine.Token}

	tests := []httpTest{
		{
			name: "update: quantity required", method: http.MethodPatch, path: itemPath(item.ID), body: marchallObj(t, echoMap{"quantity": 0}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoMap{"quantity": "this field is required"}),
		},
		{
			name: "update: not in cart", method: http.MethodPatch, path: itemPath(foreign.ID), body: marchallObj(t, echoMap{"quantity": 2}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "update: unknown", method: http.MethodPatch, path: itemPath(999), body: marchallObj(t, echoMap{"quantity": 2}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "update: bad id", method: http.MethodPatch, path: itemPath("lol"), body: marchallObj(t, echoMap{"quantity": 2}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{name: "update", method: http.MethodPatch, path: itemPath(item.ID), body: marchallObj(t, echoMap{"quantity": 5}), wantCode: http.StatusOK},
		{name: "remove: not in cart", method: http.MethodDelete, path: itemPath(foreign.ID), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		tt.headers = headers

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.do(app))
		})
	}

	sum := decodeSummary(t, httpTest{method: http.MethodGet, path: "/api/v1/cart", headers: headers}.do(app))
	require.Len(t, sum.Items, 1)
	assert.Equal(t, 5, sum.Items[0].Quantity)

	rec := httpTest{method: http.MethodDelete, path: itemPath(item.ID), headers: headers}.do(app)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSummary(t, rec).Items)

	// the other cart is untouched
	items, err := cartRepo.QueryItems(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func Test_cartApi_login(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	book := testutil.CreateProduct(t, catRepo, "Workbook", 1500, true)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", user.RoleParent)
	userCart := testutil.CreateCart(t, cartRepo, cart.Cart{UserID: parent.ID})
	testutil.AddItem(t, cartRepo, cart.Item{CartID: userCart.ID, ProductID: book.ID, Quantity: 1, Price: book.Price})

	// browse as a guest
	headers := map[string]string{conf.Cart.TokenHeader: "guest-token"}
	rec := httpTest{
		method:  http.MethodPost,
		path:    "/api/v1/cart/items",
		body:    marchallObj(t, echoMap{"type": "product", "id": book.ID, "quantity": 2}),
		headers: headers,
	}.do(app)
	require.Equal(t, http.StatusCreated, rec.Code)
	guestCartID := decodeSummary(t, rec).ID

	// then log in
	rec = httpTest{method: http.MethodGet, path: "/api/v1/cart", token: getToken(t, parent), headers: headers}.do(app)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(conf.Cart.TokenHeader), "user carts are not handed a token")

	sum := decodeSummary(t, rec)
	assert.Equal(t, userCart.ID, sum.ID)
	require.Len(t, sum.Items, 1)
	assert.Equal(t, 3, sum.Items[0].Quantity)

	_, err := cartRepo.GetCart(ctx, cart.GetFilter{ID: guestCartID})
	assert.True(t, core.IsNotFound(err), "guest cart deleted")
}

func Test_cartApi_strategies(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", user.RoleAdmin)
	parent := testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", user.RoleParent)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", token: getToken(t, parent), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{
			name: "Ordered strategies", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, []string{"user", "token", "session", "fallback"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/v1/cart-strategies"

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.do(app))
		})
	}
}

func Test_metrics(t *testing.T) {
	app := setup(t)

	rec := httpTest{method: http.MethodGet, path: "/api/v1/cart"}.do(app)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httpTest{method: http.MethodGet, path: "/metrics"}.do(app)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tutoring_test_cart_resolutions_total{created="true",strategy="session"} 1`)
	assert.Contains(t, body, `tutoring_test_cart_tokens_issued_total{strategy="session"} 1`)
	assert.Contains(t, body, `tutoring_test_http_requests_total{handler="GET /api/v1/cart",status="200"} 1`)
}

type echoMap map[string]interface{}
