package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/salescost/backend/internal/application/billing"
	"github.com/salescost/backend/internal/domain/billing"
	"github.com/salescost/backend/internal/domain/catalog"
	"github.com/salescost/backend/internal/domain/partner"
	"github.com/salescost/backend/internal/domain/shared"
	"github.com/salescost/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByLineID(ctx context.Context, lineID uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, lineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvoiceRepo) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockInvoiceRepo) NextInvoiceNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockInvoiceRepo) Stats(ctx context.Context, query billing.StatsQuery) (*billing.SalesStats, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SalesStats), args.Error(1)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *mockProductRepo) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *mockProductRepo) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

type mockClientRepo struct {
	mock.Mock
}

func (m *mockClientRepo) FindByID(ctx context.Context, id uuid.UUID) (*partner.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Client), args.Error(1)
}

func (m *mockClientRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockClientRepo) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Client, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Client), args.Error(1)
}

func (m *mockClientRepo) Save(ctx context.Context, client *partner.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

type handlerFixture struct {
	router      *gin.Engine
	invoiceRepo *mockInvoiceRepo
	productRepo *mockProductRepo
	clientRepo  *mockClientRepo
}

func newHandlerFixture() *handlerFixture {
	invoiceRepo := new(mockInvoiceRepo)
	productRepo := new(mockProductRepo)
	clientRepo := new(mockClientRepo)

	scope := appbilling.NewNoOpTransactionScope(invoiceRepo, productRepo, clientRepo)
	service := appbilling.NewInvoiceService(invoiceRepo, scope)
	h := NewInvoiceHandler(service)

	router := gin.New()
	invoices := router.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/stats", h.Stats)
		invoices.GET("/number/:number", h.GetByNumber)
		invoices.GET("/:id", h.GetByID)
		invoices.DELETE("/:id", h.Delete)
		invoices.POST("/:id/lines", h.AddLine)
		invoices.PUT("/:id/lines/:line_id", h.UpdateLine)
		invoices.DELETE("/:id/lines/:line_id", h.RemoveLine)
		invoices.POST("/:id/confirm", h.Confirm)
		invoices.POST("/:id/void", h.Void)
	}

	return &handlerFixture{
		router:      router,
		invoiceRepo: invoiceRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
	}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func draftInvoiceWithLine(t *testing.T, quantity int64) (*billing.Invoice, *catalog.Product) {
	t.Helper()
	product, err := catalog.NewProduct("CAF-500", "Cafe 500g", decimal.RequireFromString("100.00"), 10)
	require.NoError(t, err)

	invoice, err := billing.NewInvoice("F000001", uuid.New(), "Comercial Andina", "")
	require.NoError(t, err)

	_, err = invoice.AddLine(product.ID, product.Name, product.SKU, quantity, valueobject.NewMoneyCOP(decimal.RequireFromString("100.00")))
	require.NoError(t, err)

	return invoice, product
}

func TestInvoiceHandlerCreate(t *testing.T) {
	t.Run("creates draft invoice", func(t *testing.T) {
		f := newHandlerFixture()
		client, err := partner.NewClient("Comercial Andina", "900123456-7")
		require.NoError(t, err)

		f.clientRepo.On("FindByID", mock.Anything, client.ID).Return(client, nil)
		f.invoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("F000042", nil)
		f.invoiceRepo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Invoice")).Return(nil)

		w := f.do(t, http.MethodPost, "/invoices", gin.H{"client_id": client.ID.String()})

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeEnvelope(t, w)
		assert.True(t, resp.Success)

		var data struct {
			Number string `json:"number"`
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "F000042", data.Number)
		assert.Equal(t, "DRAFT", data.Status)
	})

	t.Run("rejects missing client_id", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(t, http.MethodPost, "/invoices", gin.H{"notes": "sin cliente"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 for unknown client", func(t *testing.T) {
		f := newHandlerFixture()
		clientID := uuid.New()

		f.clientRepo.On("FindByID", mock.Anything, clientID).Return(nil, shared.ErrNotFound)

		w := f.do(t, http.MethodPost, "/invoices", gin.H{"client_id": clientID.String()})

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeEnvelope(t, w)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	})
}

func TestInvoiceHandlerGetByID(t *testing.T) {
	t.Run("returns invoice with lines", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, _ := draftInvoiceWithLine(t, 2)

		f.invoiceRepo.On("FindByID", mock.Anything, invoice.ID).Return(invoice, nil)

		w := f.do(t, http.MethodGet, "/invoices/"+invoice.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)

		var data struct {
			Number string `json:"number"`
			Lines  []struct {
				Quantity int64 `json:"quantity"`
			} `json:"lines"`
			Total string `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "F000001", data.Number)
		require.Len(t, data.Lines, 1)
		assert.Equal(t, int64(2), data.Lines[0].Quantity)
		assert.Equal(t, "238", data.Total)
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(t, http.MethodGet, "/invoices/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 for unknown invoice", func(t *testing.T) {
		f := newHandlerFixture()
		id := uuid.New()

		f.invoiceRepo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := f.do(t, http.MethodGet, "/invoices/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInvoiceHandlerGetByNumber(t *testing.T) {
	f := newHandlerFixture()
	invoice, _ := draftInvoiceWithLine(t, 1)

	f.invoiceRepo.On("FindByNumber", mock.Anything, "F000001").Return(invoice, nil)

	w := f.do(t, http.MethodGet, "/invoices/number/F000001", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
}

func TestInvoiceHandlerList(t *testing.T) {
	t.Run("lists invoices with pagination meta", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, _ := draftInvoiceWithLine(t, 1)

		f.invoiceRepo.On("FindAll", mock.Anything, mock.AnythingOfType("shared.Filter")).
			Return([]billing.Invoice{*invoice}, nil)
		f.invoiceRepo.On("Count", mock.Anything, mock.AnythingOfType("shared.Filter")).
			Return(int64(1), nil)

		w := f.do(t, http.MethodGet, "/invoices?page=1&page_size=10", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Equal(t, 10, resp.Meta.PageSize)
	})

	t.Run("rejects invalid order_dir", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(t, http.MethodGet, "/invoices?order_dir=sideways", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInvoiceHandlerStats(t *testing.T) {
	f := newHandlerFixture()

	f.invoiceRepo.On("Stats", mock.Anything, mock.AnythingOfType("billing.StatsQuery")).
		Return(&billing.SalesStats{
			DraftCount:     1,
			ConfirmedCount: 2,
			VoidedCount:    0,
			TotalRevenue:   decimal.RequireFromString("476.00"),
			AverageTicket:  decimal.RequireFromString("238.00"),
		}, nil)

	w := f.do(t, http.MethodGet, "/invoices/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)

	var data struct {
		ConfirmedCount int64  `json:"confirmed_count"`
		TotalRevenue   string `json:"total_revenue"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, int64(2), data.ConfirmedCount)
	assert.Equal(t, "476", data.TotalRevenue)
}

func TestInvoiceHandlerAddLine(t *testing.T) {
	t.Run("adds line to draft", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, err := billing.NewInvoice("F000001", uuid.New(), "Comercial Andina", "")
		require.NoError(t, err)
		product, err := catalog.NewProduct("CAF-500", "Cafe 500g", decimal.RequireFromString("100.00"), 10)
		require.NoError(t, err)

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)
		f.invoiceRepo.On("Save", mock.Anything, invoice).Return(nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/lines", invoice.ID), gin.H{
			"product_id": product.ID.String(),
			"quantity":   2,
			"unit_price": "100.00",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)

		var data struct {
			Subtotal string `json:"subtotal"`
			Tax      string `json:"tax"`
			Total    string `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "200", data.Subtotal)
		assert.Equal(t, "38", data.Tax)
		assert.Equal(t, "238", data.Total)
	})

	t.Run("defaults omitted unit price to the sale price", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, err := billing.NewInvoice("F000001", uuid.New(), "Comercial Andina", "")
		require.NoError(t, err)
		product, err := catalog.NewProduct("CAF-500", "Cafe 500g", decimal.RequireFromString("100.00"), 10)
		require.NoError(t, err)

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)
		f.invoiceRepo.On("Save", mock.Anything, invoice).Return(nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/lines", invoice.ID), gin.H{
			"product_id": product.ID.String(),
			"quantity":   2,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)

		var data struct {
			Lines []struct {
				UnitPrice string `json:"unit_price"`
			} `json:"lines"`
			Total string `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		require.Len(t, data.Lines, 1)
		assert.Equal(t, "100", data.Lines[0].UnitPrice)
		assert.Equal(t, "238", data.Total)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		f := newHandlerFixture()

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/lines", uuid.New()), gin.H{
			"product_id": uuid.New().String(),
			"quantity":   0,
			"unit_price": "100.00",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 422 when stock is insufficient", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, err := billing.NewInvoice("F000001", uuid.New(), "Comercial Andina", "")
		require.NoError(t, err)
		product, err := catalog.NewProduct("CAF-500", "Cafe 500g", decimal.RequireFromString("100.00"), 1)
		require.NoError(t, err)

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/lines", invoice.ID), gin.H{
			"product_id": product.ID.String(),
			"quantity":   5,
			"unit_price": "100.00",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeEnvelope(t, w)
		assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	})
}

func TestInvoiceHandlerConfirm(t *testing.T) {
	t.Run("confirms draft and decrements stock", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, product := draftInvoiceWithLine(t, 2)

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.productRepo.On("FindByIDForUpdate", mock.Anything, product.ID).Return(product, nil)
		f.productRepo.On("AdjustStock", mock.Anything, product.ID, int64(-2)).Return(nil)
		f.invoiceRepo.On("Save", mock.Anything, invoice).Return(nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/confirm", invoice.ID), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)

		var data struct {
			Status       string `json:"status"`
			StockApplied bool   `json:"stock_applied"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "CONFIRMED", data.Status)
		assert.True(t, data.StockApplied)
		f.productRepo.AssertExpectations(t)
	})

	t.Run("returns 409 when already confirmed", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, _ := draftInvoiceWithLine(t, 1)
		require.NoError(t, invoice.Confirm())

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/confirm", invoice.ID), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeEnvelope(t, w)
		assert.Equal(t, "INVALID_STATE", resp.Error.Code)
	})
}

func TestInvoiceHandlerVoid(t *testing.T) {
	t.Run("voids confirmed invoice and restores stock", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, product := draftInvoiceWithLine(t, 2)
		require.NoError(t, invoice.Confirm())

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.productRepo.On("FindByIDForUpdate", mock.Anything, product.ID).Return(product, nil)
		f.productRepo.On("AdjustStock", mock.Anything, product.ID, int64(2)).Return(nil)
		f.invoiceRepo.On("Save", mock.Anything, invoice).Return(nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/void", invoice.ID), gin.H{
			"reason": "cliente desistio",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)

		var data struct {
			Status string `json:"status"`
			Notes  string `json:"notes"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "VOIDED", data.Status)
		assert.Contains(t, data.Notes, "[VOIDED] cliente desistio")
		f.productRepo.AssertExpectations(t)
	})

	t.Run("voids draft without body", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, _ := draftInvoiceWithLine(t, 1)

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.invoiceRepo.On("Save", mock.Anything, invoice).Return(nil)

		w := f.do(t, http.MethodPost, fmt.Sprintf("/invoices/%s/void", invoice.ID), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		f.productRepo.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestInvoiceHandlerDelete(t *testing.T) {
	t.Run("deletes draft", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, _ := draftInvoiceWithLine(t, 1)

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)
		f.invoiceRepo.On("Delete", mock.Anything, invoice.ID).Return(nil)

		w := f.do(t, http.MethodDelete, "/invoices/"+invoice.ID.String(), nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("returns 409 for confirmed invoice", func(t *testing.T) {
		f := newHandlerFixture()
		invoice, _ := draftInvoiceWithLine(t, 1)
		require.NoError(t, invoice.Confirm())

		f.invoiceRepo.On("FindByIDForUpdate", mock.Anything, invoice.ID).Return(invoice, nil)

		w := f.do(t, http.MethodDelete, "/invoices/"+invoice.ID.String(), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		f.invoiceRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
