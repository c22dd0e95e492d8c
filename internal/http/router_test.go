package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/till/internal/catalog"
	catalogStore "github.com/MrJamesThe3rd/till/internal/catalog/store"
	"github.com/MrJamesThe3rd/till/internal/clock"
	"github.com/MrJamesThe3rd/till/internal/database"
	tillHttp "github.com/MrJamesThe3rd/till/internal/http"
	importHandler "github.com/MrJamesThe3rd/till/internal/http/importcsv"
	productHandler "github.com/MrJamesThe3rd/till/internal/http/product"
	registerHandler "github.com/MrJamesThe3rd/till/internal/http/register"
	reportHandler "github.com/MrJamesThe3rd/till/internal/http/report"
	txHandler "github.com/MrJamesThe3rd/till/internal/http/transaction"
	"github.com/MrJamesThe3rd/till/internal/id"
	"github.com/MrJamesThe3rd/till/internal/importer"
	"github.com/MrJamesThe3rd/till/internal/notify"
	"github.com/MrJamesThe3rd/till/internal/register"
	"github.com/MrJamesThe3rd/till/internal/report"
	"github.com/MrJamesThe3rd/till/internal/transaction"
	txStore "github.com/MrJamesThe3rd/till/internal/transaction/store"
)

const currency = "EUR"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()

	db, err := database.New(database.DriverSQLite, ":memory:?_pragma=foreign_keys(1)", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db))

	products, err := catalogStore.New(ctx, db, currency)
	require.NoError(t, err)
	t.Cleanup(func() { products.Close() })

	ledger, err := txStore.New(ctx, db, currency)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	broker := notify.NewBroker()

	var (
		catalogService     = catalog.NewService(products, broker, &id.Sequence{Prefix: "p"}, currency)
		transactionService = transaction.NewService(ledger, broker, clock.System{}, &id.Sequence{Prefix: "tx"}, currency)
		session            = register.NewSession(catalogService, transactionService, currency)
		reportService      = report.NewService(transactionService, currency, time.UTC)
		importService      = importer.NewService(currency)
	)

	router := tillHttp.New(
		tillHttp.Options{AllowedOrigins: []string{"*"}, Timeout: 5 * time.Second},
		productHandler.NewHandler(catalogService, currency),
		txHandler.NewHandler(transactionService, currency),
		registerHandler.NewHandler(session),
		reportHandler.NewHandler(reportService),
		importHandler.NewHandler(importService, catalogService),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type productJSON struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Barcode *string   `json:"barcode"`
	Price   moneyJSON `json:"price"`
}

type transactionJSON struct {
	ID    string `json:"id"`
	Items []struct {
		ID             int64     `json:"id"`
		ProductID      *string   `json:"product_id"`
		ProductName    string    `json:"product_name"`
		Quantity       int       `json:"quantity"`
		DiscountAmount moneyJSON `json:"discount_amount"`
	} `json:"items"`
	TotalAmount   moneyJSON `json:"total_amount"`
	TotalQuantity int       `json:"total_quantity"`
}

type cartJSON struct {
	Items  []struct{ ProductID string } `json:"items"`
	Totals struct {
		FinalTotal    moneyJSON `json:"final_total"`
		TotalQuantity int       `json:"total_quantity"`
	} `json:"totals"`
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestProducts(t *testing.T) {
	srv := newServer(t)

	var soap productJSON
	code := do(t, srv, "POST", "/api/v1/products", map[string]string{"name": "Soap", "barcode": "4001", "price": "2.50"}, &soap)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "p-1", soap.ID)
	assert.Equal(t, "2.5", soap.Price.Amount)
	assert.Equal(t, currency, soap.Price.Currency)

	code = do(t, srv, "POST", "/api/v1/products", map[string]string{"name": "Towel", "price": "-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var found productJSON
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/products/barcode/4001", nil, &found))
	assert.Equal(t, "Soap", found.Name)

	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/v1/products/nope", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/v1/products/barcode/0000", nil, nil))

	code = do(t, srv, "PATCH", "/api/v1/products/nope", map[string]string{"name": "X", "price": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var towel productJSON
	require.Equal(t, http.StatusOK, do(t, srv, "PUT", "/api/v1/products/towel", map[string]string{"name": "Towel", "price": "12"}, &towel))
	assert.Nil(t, towel.Barcode)

	var listed []productJSON
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/products?q=so", nil, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "p-1", listed[0].ID)

	var page struct {
		Items   []productJSON `json:"items"`
		PrevKey *int          `json:"prev_key"`
		NextKey *int          `json:"next_key"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/products/page?page=0&size=1", nil, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Soap", page.Items[0].Name)
	assert.Nil(t, page.PrevKey)
	require.NotNil(t, page.NextKey)
	assert.Equal(t, 1, *page.NextKey)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, "GET", "/api/v1/products/page?size=0", nil, nil))

	assert.Equal(t, http.StatusNoContent, do(t, srv, "DELETE", "/api/v1/products/towel", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/v1/products/towel", nil, nil))
}

func TestRegisterCheckoutAndLedger(t *testing.T) {
	srv := newServer(t)

	require.Equal(t, http.StatusOK, do(t, srv, "PUT", "/api/v1/products/soap", map[string]string{"name": "Soap", "barcode": "4001", "price": "2.50"}, nil))
	require.Equal(t, http.StatusOK, do(t, srv, "PUT", "/api/v1/products/towel", map[string]string{"name": "Towel", "price": "12"}, nil))

	assert.Equal(t, http.StatusBadRequest, do(t, srv, "POST", "/api/v1/register/checkout", nil, nil))

	var c cartJSON
	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/v1/register/cart/scan", map[string]any{"barcode": "4001", "quantity": 2}, &c))
	require.Equal(t, http.StatusOK, do(t, srv, "POST", "/api/v1/register/cart/items", map[string]any{"product_id": "towel"}, &c))
	assert.Equal(t, 3, c.Totals.TotalQuantity)
	assert.Equal(t, "17", c.Totals.FinalTotal.Amount)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, "POST", "/api/v1/register/cart/scan", map[string]any{"barcode": "9999"}, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, "PUT", "/api/v1/register/cart/items/7", map[string]any{"quantity": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, do(t, srv, "PUT", "/api/v1/register/cart/items/x", map[string]any{"quantity": 1}, nil))

	require.Equal(t, http.StatusOK, do(t, srv, "PUT", "/api/v1/register/cart/items/0/discount", map[string]any{"percent": 20}, &c))
	require.Equal(t, http.StatusOK, do(t, srv, "PUT", "/api/v1/register/cart/discount", map[string]any{"percent": 10}, &c))
	// (2 * 2.00 + 12) * 0.9
	assert.Equal(t, "14.4", c.Totals.FinalTotal.Amount)

	var tx transactionJSON
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/v1/register/checkout", nil, &tx))
	assert.Equal(t, "tx-1", tx.ID)
	require.Len(t, tx.Items, 2)
	assert.Equal(t, "0.5", tx.Items[0].DiscountAmount.Amount)
	assert.Equal(t, "16", tx.TotalAmount.Amount)

	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/register/cart", nil, &c))
	assert.Empty(t, c.Items)

	var list []transactionJSON
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions?q=towel", nil, &list))
	require.Len(t, list, 1)

	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions?q=nothing", nil, &list))
	assert.Empty(t, list)

	var count struct{ Count int }
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions/count", nil, &count))
	assert.Equal(t, 1, count.Count)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, "GET", "/api/v1/transactions?start_date=2024-02-01&end_date=2024-01-01", nil, nil))

	var summary struct {
		Count   int       `json:"count"`
		Revenue moneyJSON `json:"revenue"`
		Text    string    `json:"text"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/reports/summary", nil, &summary))
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, "16", summary.Revenue.Amount)
	assert.Contains(t, summary.Text, "Sales: 1 | Items: 3")

	path := "/api/v1/transactions/items/" + jsonInt(tx.Items[1].ID)
	require.Equal(t, http.StatusNoContent, do(t, srv, "DELETE", path, nil, nil))

	var got transactionJSON
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions/tx-1", nil, &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.TotalQuantity)

	require.Equal(t, http.StatusNoContent, do(t, srv, "DELETE", "/api/v1/transactions/tx-1", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, srv, "GET", "/api/v1/transactions/tx-1", nil, nil))
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreateTransactionDirectly(t *testing.T) {
	srv := newServer(t)

	body := map[string]any{
		"created_at": "2024-01-02T12:00:00Z",
		"items": []map[string]any{
			{"product_name": "Loose item", "quantity": 3, "unit_price": "1.10", "discount_amount": "0.10"},
		},
	}

	var tx transactionJSON
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/v1/transactions", body, &tx))
	assert.Nil(t, tx.Items[0].ProductID)
	assert.Equal(t, "3", tx.TotalAmount.Amount)

	var list []transactionJSON
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions?start_date=2024-01-02&end_date=2024-01-02", nil, &list))
	assert.Len(t, list, 1)

	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions?start_date=2024-01-03", nil, &list))
	assert.Empty(t, list)

	body["items"] = []map[string]any{{"product_name": "Bad", "quantity": 0, "unit_price": "1"}}
	assert.Equal(t, http.StatusBadRequest, do(t, srv, "POST", "/api/v1/transactions", body, nil))

	require.Equal(t, http.StatusNoContent, do(t, srv, "DELETE", "/api/v1/transactions", nil, nil))

	var count struct{ Count int }
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/transactions/count", nil, &count))
	assert.Zero(t, count.Count)
}

func TestImportCSV(t *testing.T) {
	srv := newServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("format", "csv"))
	fw, err := mw.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Designação;Código de barras;Preço\nPão;0003;1,20\nLeite;0004;0,89\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := srv.Client().Post(srv.URL+"/api/v1/import", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Created []productJSON `json:"created"`
		Updated []productJSON `json:"updated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Created, 2)
	assert.Empty(t, result.Updated)

	var found productJSON
	require.Equal(t, http.StatusOK, do(t, srv, "GET", "/api/v1/products/barcode/0004", nil, &found))
	assert.Equal(t, "0.89", found.Price.Amount)
}

func TestTransactionStream(t *testing.T) {
	srv := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/v1/transactions/stream", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)

	event, data := readEvent(t, sc)
	assert.Equal(t, "transactions", event)
	assert.Equal(t, "[]", data)

	body := map[string]any{"items": []map[string]any{{"product_name": "Tea", "quantity": 1, "unit_price": "2"}}}
	require.Equal(t, http.StatusCreated, do(t, srv, "POST", "/api/v1/transactions", body, nil))

	event, data = readEvent(t, sc)
	assert.Equal(t, "transactions", event)

	var txs []transactionJSON
	require.NoError(t, json.Unmarshal([]byte(data), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "Tea", txs[0].Items[0].ProductName)
}

func readEvent(t *testing.T, sc *bufio.Scanner) (event, data string) {
	t.Helper()

	for sc.Scan() {
		line := sc.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}

	require.NoError(t, sc.Err())
	t.Fatal("stream ended before an event arrived")

	return "", ""
}
